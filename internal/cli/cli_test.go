package cli

import (
	"bytes"
	"context"
	"fmt"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/sublens/internal/config"
	"github.com/mgpai22/sublens/internal/jobs"
	"github.com/mgpai22/sublens/internal/pipeline"
	"github.com/mgpai22/sublens/internal/server"
	"github.com/mgpai22/sublens/internal/subtitle"
	"github.com/mgpai22/sublens/internal/video"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		input   string
		want    pipeline.Region
		wantErr bool
	}{
		{"0,900,1920,180", pipeline.Region{X: 0, Y: 900, Width: 1920, Height: 180}, false},
		{" 10, 20 , 30,40 ", pipeline.Region{X: 10, Y: 20, Width: 30, Height: 40}, false},
		{"-5,-5,100,50", pipeline.Region{X: -5, Y: -5, Width: 100, Height: 50}, false},
		{"0,0,0,0", pipeline.Region{}, false},
		{"1,2,3", pipeline.Region{}, true},
		{"1,2,3,4,5", pipeline.Region{}, true},
		{"a,b,c,d", pipeline.Region{}, true},
		{"1.5,2,3,4", pipeline.Region{}, true},
		{"0,0,-10,20", pipeline.Region{}, true},
		{"", pipeline.Region{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseRegion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRegion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseRegion(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequireRegion(t *testing.T) {
	if err := requireRegion(pipeline.Region{}); err == nil {
		t.Error("empty region should be rejected")
	}
	if err := requireRegion(pipeline.Region{Width: 100}); err == nil {
		t.Error("region without height should be rejected")
	}
	if err := requireRegion(pipeline.Region{Width: 100, Height: 20}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOutputPathFor(t *testing.T) {
	tests := []struct {
		video  string
		dir    string
		format subtitle.Format
		want   string
	}{
		{"movie.mp4", "", subtitle.FormatSRT, "movie.srt"},
		{"/videos/movie.mkv", "", subtitle.FormatVTT, "/videos/movie.vtt"},
		{"/videos/show.s01e01.avi", "", subtitle.FormatASS, "/videos/show.s01e01.ass"},
		{"/in/movie.mp4", "/out", subtitle.FormatSRT, filepath.Join("/out", "movie.srt")},
		{"noext", "", subtitle.FormatSRT, "noext.srt"},
	}

	for _, tt := range tests {
		t.Run(tt.video, func(t *testing.T) {
			if got := outputPathFor(tt.video, tt.dir, tt.format); got != tt.want {
				t.Errorf("outputPathFor(%q, %q, %q) = %q, want %q", tt.video, tt.dir, tt.format, got, tt.want)
			}
		})
	}
}

func TestRenderTable(t *testing.T) {
	if got := renderTable(nil, nil, nil, false); got != "" {
		t.Errorf("renderTable with no headers = %q, want empty", got)
	}

	out := renderTable(
		[]string{"Name", "Count"},
		[][]string{{"alpha", "1"}, {"beta"}},
		[]columnAlignment{alignLeft, alignRight},
		false,
	)
	for _, want := range []string{"alpha", "beta", "1"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n") + 1; lines < 5 {
		t.Errorf("table has %d lines, want header, rows and borders:\n%s", lines, out)
	}
}

func TestShouldStyleNonTerminal(t *testing.T) {
	var sb strings.Builder
	if shouldStyle(&sb) {
		t.Error("a strings.Builder is not a terminal")
	}
}

func TestRenderInfo(t *testing.T) {
	meta := video.Metadata{FPS: 25, FrameCount: 250, Width: 1920, Height: 1080, Codec: "h264"}
	out := renderInfo("movie.mp4", meta, false)
	for _, want := range []string{"movie.mp4", "h264", "1920x1080", "25.000", "250", "10.00s"} {
		if !strings.Contains(out, want) {
			t.Errorf("info missing %q:\n%s", want, out)
		}
	}
}

func TestRenderJobs(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list := []*jobs.Job{
		{
			ID:                "0123456789abcdef",
			SourcePath:        "movie.mp4",
			Origin:            jobs.OriginCLI,
			Status:            jobs.StatusSucceeded,
			SampledFrames:     120,
			Entries:           14,
			ProcessingSeconds: 42.31,
			CreatedAt:         created,
		},
		{
			ID:           "fedcba98",
			SourcePath:   "broken.mp4",
			Origin:       jobs.OriginWatch,
			Status:       jobs.StatusFailed,
			ErrorMessage: "video could not be opened",
			CreatedAt:    created,
		},
		{
			ID:         "running1",
			SourcePath: "pending.mp4",
			Origin:     jobs.OriginServer,
			Status:     jobs.StatusRunning,
			CreatedAt:  created,
		},
	}

	out := renderJobs(list, false)
	for _, want := range []string{
		"01234567", "movie.mp4", "14", "120", "42.3s",
		"failed: video could not be opened", "watch",
		"pending.mp4", "running",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("jobs table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0123456789abcdef") {
		t.Errorf("job id should be shortened:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abcdefghij", 4); got != "abcd..." {
		t.Errorf("truncate = %q, want %q", got, "abcd...")
	}
}

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addRecognitionFlags(cmd)
	addExtractionFlags(cmd)
	cmd.Flags().String("db", "", "")
	return cmd
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SUBLENS_PROVIDER", "UPLOAD_DIR", "OLLAMA_BASE_URL",
		"OPENAI_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestResolveSettingsDefaults(t *testing.T) {
	clearProviderEnv(t)
	fileConfig = nil

	cfg, err := resolveSettings(newSettingsCommand())
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if cfg.OCR.Provider != "ollama" {
		t.Errorf("provider = %q, want ollama", cfg.OCR.Provider)
	}
	if cfg.Extraction.Interval != 1.0 || cfg.Extraction.Format != "srt" {
		t.Errorf("extraction defaults = %+v", cfg.Extraction)
	}
	if cfg.Extraction.Region != (pipeline.Region{}) {
		t.Errorf("region = %+v, want zero", cfg.Extraction.Region)
	}
}

func TestResolveSettingsPrecedence(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "env-key")

	fileConfig = &config.Config{
		Extraction: config.ExtractionConfig{Interval: 2, Format: "vtt"},
	}
	t.Cleanup(func() { fileConfig = nil })

	cmd := newSettingsCommand()
	for name, value := range map[string]string{
		"provider": "openai",
		"roi":      "0,900,1920,180",
		"interval": "0.5",
		"db":       filepath.Join(t.TempDir(), "history.db"),
	} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}

	cfg, err := resolveSettings(cmd)
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if cfg.OCR.Provider != "openai" {
		t.Errorf("provider = %q, want openai", cfg.OCR.Provider)
	}
	if cfg.OCR.APIKey != "env-key" {
		t.Errorf("api key = %q, want value from environment", cfg.OCR.APIKey)
	}
	if cfg.Extraction.Interval != 0.5 {
		t.Errorf("interval = %v, want flag value 0.5", cfg.Extraction.Interval)
	}
	if cfg.Extraction.Format != "vtt" {
		t.Errorf("format = %q, want file value vtt", cfg.Extraction.Format)
	}
	if want := (pipeline.Region{X: 0, Y: 900, Width: 1920, Height: 180}); cfg.Extraction.Region != want {
		t.Errorf("region = %+v, want %+v", cfg.Extraction.Region, want)
	}
	if !strings.HasSuffix(cfg.Server.Database, "history.db") {
		t.Errorf("database = %q", cfg.Server.Database)
	}

	if err := cmd.Flags().Set("api-key", "flag-key"); err != nil {
		t.Fatal(err)
	}
	cfg, err = resolveSettings(cmd)
	if err != nil {
		t.Fatalf("resolveSettings: %v", err)
	}
	if cfg.OCR.APIKey != "flag-key" {
		t.Errorf("api key = %q, want flag value", cfg.OCR.APIKey)
	}
}

func TestResolveSettingsRejectsInvalid(t *testing.T) {
	clearProviderEnv(t)
	fileConfig = nil

	for name, value := range map[string]string{
		"provider": "tesseract",
		"roi":      "1,2,3",
		"format":   "txt",
	} {
		t.Run(name, func(t *testing.T) {
			cmd := newSettingsCommand()
			if err := cmd.Flags().Set(name, value); err != nil {
				t.Fatal(err)
			}
			if _, err := resolveSettings(cmd); err == nil {
				t.Errorf("%s=%q should be rejected", name, value)
			}
		})
	}
}

func TestBuildExtractorRequiresAPIKey(t *testing.T) {
	cfg := &config.Config{OCR: config.OCRConfig{Provider: "gemini"}}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	_, err := buildExtractor(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("err = %v, want missing GEMINI_API_KEY", err)
	}
}

type solidSource struct {
	meta video.Metadata
}

func (s solidSource) Metadata() video.Metadata { return s.meta }

func (s solidSource) ReadFrame(ctx context.Context, index int) (image.Image, error) {
	if index >= s.meta.FrameCount {
		return nil, video.ErrEndOfStream
	}
	return image.NewGray(image.Rect(0, 0, s.meta.Width, s.meta.Height)), nil
}

func (s solidSource) Close() error { return nil }

type decoderFunc func(ctx context.Context, path string) (video.Source, error)

func (f decoderFunc) Open(ctx context.Context, path string) (video.Source, error) {
	return f(ctx, path)
}

type recognizerFunc func(ctx context.Context, img image.Image) (string, error)

func (f recognizerFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

func TestExtractToFile(t *testing.T) {
	dir := t.TempDir()
	store, err := jobs.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	settings := &config.Config{
		Extraction: config.ExtractionConfig{Region: pipeline.Region{Width: 100, Height: 20}},
	}
	if err := settings.Validate(); err != nil {
		t.Fatal(err)
	}

	decoder := decoderFunc(func(ctx context.Context, path string) (video.Source, error) {
		return solidSource{meta: video.Metadata{FPS: 10, FrameCount: 30, Width: 100, Height: 50}}, nil
	})
	recognizer := recognizerFunc(func(ctx context.Context, img image.Image) (string, error) {
		return "Hello", nil
	})
	extractor := pipeline.NewExtractor(decoder, recognizer, nil)

	outputPath := filepath.Join(dir, "out", "clip.srt")
	req := settings.Extraction.Request(filepath.Join(dir, "clip.mp4"))

	res, err := extractToFile(context.Background(), extractor, jobs.NewRecorder(store, nil),
		jobs.OriginWatch, req, settings, subtitle.FormatSRT, outputPath)
	if err != nil {
		t.Fatalf("extractToFile: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Text != "Hello" {
		t.Fatalf("entries = %+v, want one Hello entry", res.Entries)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "Hello") || !strings.Contains(string(data), "-->") {
		t.Errorf("unexpected subtitle file:\n%s", data)
	}

	list, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("jobs = %d, want 1", len(list))
	}
	job := list[0]
	if job.Status != jobs.StatusSucceeded || job.Origin != jobs.OriginWatch {
		t.Errorf("job = %+v", job)
	}
	if job.Entries != 1 || job.OutputPath != outputPath {
		t.Errorf("job outcome = %+v", job)
	}
}

func TestExtractToFileRecordsFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := jobs.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	settings := &config.Config{
		Extraction: config.ExtractionConfig{Region: pipeline.Region{Width: 100, Height: 20}},
	}
	if err := settings.Validate(); err != nil {
		t.Fatal(err)
	}

	errCorrupt := errors.New("moov atom not found")
	decoder := decoderFunc(func(ctx context.Context, path string) (video.Source, error) {
		return nil, errCorrupt
	})
	extractor := pipeline.NewExtractor(decoder, recognizerFunc(func(context.Context, image.Image) (string, error) {
		return "", nil
	}), nil)

	outputPath := filepath.Join(dir, "clip.srt")
	_, err = extractToFile(context.Background(), extractor, jobs.NewRecorder(store, nil),
		jobs.OriginCLI, settings.Extraction.Request("clip.mp4"), settings, subtitle.FormatSRT, outputPath)
	if !errors.Is(err, pipeline.ErrVideoUnreadable) {
		t.Fatalf("err = %v, want ErrVideoUnreadable", err)
	}
	if _, statErr := os.Stat(outputPath); !os.IsNotExist(statErr) {
		t.Error("no subtitle file should be written on failure")
	}

	list, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Status != jobs.StatusFailed {
		t.Fatalf("jobs = %+v, want one failed job", list)
	}
	if !strings.Contains(list[0].ErrorMessage, "moov atom") {
		t.Errorf("error message = %q", list[0].ErrorMessage)
	}
}

func TestServeUploadLimitMatchesServerDefault(t *testing.T) {
	flag := serveCmd.Flags().Lookup("max-upload")
	if flag == nil {
		t.Fatal("serve has no --max-upload flag")
	}
	if want := strconv.FormatInt(server.DefaultMaxUploadBytes, 10); flag.DefValue != want {
		t.Errorf("--max-upload default = %s, want %s", flag.DefValue, want)
	}
}

func TestShowJobWithSubtitlePreview(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store, err := jobs.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	var blocks []subtitle.Block
	for i := 1; i <= 12; i++ {
		start := float64(i * 2)
		blocks = append(blocks, subtitle.Block{Index: i, Start: start, End: start + 1, Text: fmt.Sprintf("Hello %d", i)})
	}
	outputPath := filepath.Join(dir, "clip.srt")
	if err := subtitle.WriteFile(outputPath, subtitle.RenderBlocks(blocks)); err != nil {
		t.Fatal(err)
	}

	job, err := store.Begin(ctx, "clip.mp4", jobs.OriginCLI, "0,900,1920,180", 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Complete(ctx, job.ID, jobs.Outcome{Entries: 12, OutputPath: outputPath}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(&out)

	if err := showJob(cmd, store, job.ID[:8]); err != nil {
		t.Fatalf("showJob: %v", err)
	}
	got := out.String()
	for _, want := range []string{job.ID, "clip.mp4", "0,900,1920,180", "succeeded", "Hello 10", "00:00:20,000", "... 2 more"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Hello 11") {
		t.Errorf("preview should stop after %d subtitles:\n%s", previewBlocks, got)
	}

	if err := showJob(cmd, store, "ffffffff-0000"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("showJob(unknown) error = %v, want not found", err)
	}
}

func TestRenderSubtitlePreviewEmpty(t *testing.T) {
	if got := renderSubtitlePreview(nil, previewBlocks, false); got != "" {
		t.Errorf("preview of no blocks = %q, want empty", got)
	}
}
