package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/mgpai22/sublens/internal/video"
)

// frames are uniform gray images whose value is the frame index
type fakeSource struct {
	meta   video.Metadata
	failAt map[int]error

	mu     sync.Mutex
	reads  []int
	closed bool
}

func newFakeSource(fps float64, frameCount, width, height int) *fakeSource {
	return &fakeSource{
		meta: video.Metadata{FPS: fps, FrameCount: frameCount, Width: width, Height: height},
	}
}

func (s *fakeSource) Metadata() video.Metadata { return s.meta }

func (s *fakeSource) ReadFrame(ctx context.Context, index int) (image.Image, error) {
	s.mu.Lock()
	s.reads = append(s.reads, index)
	s.mu.Unlock()

	if err, ok := s.failAt[index]; ok {
		return nil, err
	}
	if index < 0 || index >= s.meta.FrameCount {
		return nil, video.ErrEndOfStream
	}

	img := image.NewGray(image.Rect(0, 0, s.meta.Width, s.meta.Height))
	for i := range img.Pix {
		img.Pix[i] = uint8(index)
	}
	return img, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDecoder struct {
	src    *fakeSource
	err    error
	opened int
}

func (d *fakeDecoder) Open(ctx context.Context, path string) (video.Source, error) {
	d.opened++
	if d.err != nil {
		return nil, d.err
	}
	return d.src, nil
}

type recognizerFunc func(ctx context.Context, img image.Image) (string, error)

func (f recognizerFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

// frame index recovered from a fakeSource frame or crop
func frameValue(img image.Image) int {
	b := img.Bounds()
	return int(color.GrayModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.Gray).Y)
}

var errRecognition = errors.New("model unavailable")
