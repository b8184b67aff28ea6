package pipeline

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"
)

func grayFrame(ts float64, value uint8) SampledFrame {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return SampledFrame{Timestamp: ts, Image: img}
}

func TestRecognizeFramesOutcomes(t *testing.T) {
	rec := recognizerFunc(func(ctx context.Context, img image.Image) (string, error) {
		switch frameValue(img) {
		case 1:
			return "  Hello \n", nil
		case 2:
			return "EMPTY", nil
		case 3:
			return "", errRecognition
		default:
			return "", nil
		}
	})

	frames := []SampledFrame{grayFrame(0, 1), grayFrame(1, 2), grayFrame(2, 3), grayFrame(3, 4)}
	outcomes := RecognizeFrames(context.Background(), rec, frames, 1)

	want := []struct {
		status Status
		text   string
	}{
		{StatusRecognized, "Hello"},
		{StatusNoText, ""},
		{StatusFailed, ""},
		{StatusNoText, ""},
	}
	if len(outcomes) != len(want) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(want))
	}
	for i, w := range want {
		o := outcomes[i]
		if o.Timestamp != frames[i].Timestamp || o.Status != w.status || o.Text != w.text {
			t.Errorf("outcome %d = %+v, want status %s text %q", i, o, w.status, w.text)
		}
	}
	if !errors.Is(outcomes[2].Err, errRecognition) {
		t.Errorf("failed outcome lost its error: %v", outcomes[2].Err)
	}

	got := Recognized(outcomes)
	if len(got) != 1 || got[0] != (Recognition{Timestamp: 0, Text: "Hello"}) {
		t.Errorf("Recognized = %+v", got)
	}
}

func TestRecognizeFramesParallelKeepsOrder(t *testing.T) {
	const n = 20
	rec := recognizerFunc(func(ctx context.Context, img image.Image) (string, error) {
		v := frameValue(img)
		// later frames finish first
		time.Sleep(time.Duration(n-v) * time.Millisecond)
		return string(rune('a' + v)), nil
	})

	frames := make([]SampledFrame, n)
	for i := range frames {
		frames[i] = grayFrame(float64(i)*0.5, uint8(i))
	}

	for _, concurrency := range []int{2, 4, 50} {
		outcomes := RecognizeFrames(context.Background(), rec, frames, concurrency)
		if len(outcomes) != n {
			t.Fatalf("concurrency %d: got %d outcomes", concurrency, len(outcomes))
		}
		for i, o := range outcomes {
			if o.Timestamp != frames[i].Timestamp || o.Text != string(rune('a'+i)) {
				t.Errorf("concurrency %d: outcome %d = %+v out of order", concurrency, i, o)
			}
		}
	}
}

func TestRecognizeFramesCancelled(t *testing.T) {
	calls := 0
	rec := recognizerFunc(func(ctx context.Context, img image.Image) (string, error) {
		calls++
		return "text", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := RecognizeFrames(ctx, rec, []SampledFrame{grayFrame(0, 1), grayFrame(1, 1)}, 1)
	for _, o := range outcomes {
		if o.Status != StatusFailed || !errors.Is(o.Err, context.Canceled) {
			t.Errorf("outcome = %+v, want cancelled failure", o)
		}
	}
	if calls != 0 {
		t.Errorf("recognizer called %d times after cancel", calls)
	}
}

func TestRecognizeFramesEmpty(t *testing.T) {
	rec := recognizerFunc(func(ctx context.Context, img image.Image) (string, error) {
		t.Fatal("recognizer should not be called")
		return "", nil
	})
	if got := RecognizeFrames(context.Background(), rec, nil, 4); len(got) != 0 {
		t.Errorf("expected no outcomes, got %v", got)
	}
}
