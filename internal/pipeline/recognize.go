package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/mgpai22/sublens/internal/ocr"
)

// result of recognizing one sampled frame
type Status string

const (
	StatusRecognized Status = "recognized"
	StatusNoText     Status = "no_text"
	StatusFailed     Status = "failed"
)

// FrameOutcome is the recognition result for one sampled frame. Text is set
// only for StatusRecognized and Err only for StatusFailed.
type FrameOutcome struct {
	Timestamp float64
	Text      string
	Status    Status
	Err       error
}

// Recognition is a timestamp paired with the non-empty text read there.
type Recognition struct {
	Timestamp float64
	Text      string
}

// RecognizeFrames runs rec over every frame. With concurrency above 1 the
// calls run on a worker pool; outcomes are always returned in frame order.
// A failed call never stops the batch.
func RecognizeFrames(
	ctx context.Context,
	rec ocr.Recognizer,
	frames []SampledFrame,
	concurrency int,
) []FrameOutcome {
	if len(frames) == 0 {
		return nil
	}
	if concurrency <= 1 {
		outcomes := make([]FrameOutcome, len(frames))
		for i, frame := range frames {
			outcomes[i] = recognizeFrame(ctx, rec, frame)
		}
		return outcomes
	}
	return recognizeParallel(ctx, rec, frames, concurrency)
}

// holds the outcome of one frame
type frameResult struct {
	Index   int
	Outcome FrameOutcome
}

func recognizeParallel(
	ctx context.Context,
	rec ocr.Recognizer,
	frames []SampledFrame,
	concurrency int,
) []FrameOutcome {
	workChan := make(chan int, len(frames))
	resultChan := make(chan frameResult, len(frames))

	var wg sync.WaitGroup
	for i := 0; i < min(concurrency, len(frames)); i++ {
		wg.Go(func() {
			for idx := range workChan {
				resultChan <- frameResult{
					Index:   idx,
					Outcome: recognizeFrame(ctx, rec, frames[idx]),
				}
			}
		})
	}

	for i := range frames {
		workChan <- i
	}
	close(workChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]frameResult, 0, len(frames))
	for result := range resultChan {
		results = append(results, result)
	}

	// sort by index to maintain order
	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})

	outcomes := make([]FrameOutcome, len(results))
	for i, r := range results {
		outcomes[i] = r.Outcome
	}
	return outcomes
}

func recognizeFrame(ctx context.Context, rec ocr.Recognizer, frame SampledFrame) FrameOutcome {
	outcome := FrameOutcome{Timestamp: frame.Timestamp}
	if err := ctx.Err(); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}

	raw, err := rec.Recognize(ctx, frame.Image)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}

	text := ocr.Normalize(raw)
	if text == "" {
		outcome.Status = StatusNoText
		return outcome
	}
	outcome.Status = StatusRecognized
	outcome.Text = text
	return outcome
}

// Recognized keeps the outcomes that produced text, in order.
func Recognized(outcomes []FrameOutcome) []Recognition {
	var results []Recognition
	for _, o := range outcomes {
		if o.Status == StatusRecognized {
			results = append(results, Recognition{Timestamp: o.Timestamp, Text: o.Text})
		}
	}
	return results
}
