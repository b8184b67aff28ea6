package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/sublens/internal/ffmpeg"
)

// ErrEndOfStream is returned by ReadFrame when no frame exists at the index.
var ErrEndOfStream = errors.New("end of stream")

// video stream information
type Metadata struct {
	FPS        float64
	FrameCount int
	Width      int
	Height     int
	Codec      string
}

// Duration in seconds derived from frame count and rate, 0 when the rate is unknown.
func (m Metadata) Duration() float64 {
	if m.FPS <= 0 {
		return 0
	}
	return float64(m.FrameCount) / m.FPS
}

// opens videos for frame-accurate sampling
type Decoder interface {
	Open(ctx context.Context, path string) (Source, error)
}

// an opened video; callers must Close it
type Source interface {
	Metadata() Metadata
	// seeks to the frame index and decodes one frame
	ReadFrame(ctx context.Context, index int) (image.Image, error)
	Close() error
}

// default implementation using ffprobe and ffmpeg
type FFmpegDecoder struct{}

func NewDecoder() *FFmpegDecoder {
	return &FFmpegDecoder{}
}

func (d *FFmpegDecoder) Open(ctx context.Context, path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video file not found: %s", path)
	}

	meta, err := Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return nil, err
	}

	return &ffmpegSource{
		path:       path,
		meta:       meta,
		ffmpegPath: ffmpegPath,
	}, nil
}

type ffmpegSource struct {
	path       string
	meta       Metadata
	ffmpegPath string

	mu     sync.Mutex
	closed bool
}

func (s *ffmpegSource) Metadata() Metadata {
	return s.meta
}

func (s *ffmpegSource) ReadFrame(ctx context.Context, index int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("read frame %d: source closed", index)
	}

	if index < 0 || s.meta.FPS <= 0 {
		return nil, ErrEndOfStream
	}
	if s.meta.FrameCount > 0 && index >= s.meta.FrameCount {
		return nil, ErrEndOfStream
	}

	seek := float64(index) / s.meta.FPS

	var stdout, stderr bytes.Buffer
	err := ffmpeg.Input(s.path, ffmpeg.KwArgs{
		"ss": strconv.FormatFloat(seek, 'f', 6, 64), // input seek
	}).
		Output("pipe:", ffmpeg.KwArgs{
			"frames:v": 1,
			"format":   "image2pipe",
			"vcodec":   "png",
		}).
		WithOutput(&stdout, &stderr).
		SetFfmpegPath(s.ffmpegPath).
		Run()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame %d failed: %w (%s)", index, err, lastLine(stderr.String()))
	}

	if stdout.Len() == 0 {
		return nil, ErrEndOfStream
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", index, err)
	}
	return img, nil
}

func (s *ffmpegSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// JSON output from ffprobe
type ffprobeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// retrieves video stream information with ffprobe
func Probe(ctx context.Context, path string) (Metadata, error) {
	ffprobePath, err := ffmpegbin.FFprobePath()
	if err != nil {
		return Metadata{}, err
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return Metadata{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbeOutput(out.Bytes())
}

func parseProbeOutput(data []byte) (Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}

		fps := parseFrameRate(stream.AvgFrameRate)
		if fps <= 0 {
			fps = parseFrameRate(stream.RFrameRate)
		}

		meta := Metadata{
			FPS:    fps,
			Width:  stream.Width,
			Height: stream.Height,
			Codec:  stream.CodecName,
		}

		if n, err := strconv.Atoi(strings.TrimSpace(stream.NbFrames)); err == nil && n > 0 {
			meta.FrameCount = n
		} else if fps > 0 {
			duration := parseSeconds(stream.Duration)
			if duration <= 0 {
				duration = parseSeconds(probe.Format.Duration)
			}
			meta.FrameCount = int(math.Floor(duration * fps))
		}

		return meta, nil
	}

	return Metadata{}, errors.New("no video stream found")
}

// parses ffprobe rates like "30000/1001" or "25"
func parseFrameRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// checks if the file is a video based on extension
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	videoExts := map[string]bool{
		".mp4":  true,
		".mkv":  true,
		".avi":  true,
		".mov":  true,
		".wmv":  true,
		".flv":  true,
		".webm": true,
		".m4v":  true,
		".mpeg": true,
		".mpg":  true,
		".3gp":  true,
	}
	return videoExts[ext]
}
