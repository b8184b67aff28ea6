package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mgpai22/sublens/internal/logging"
	"github.com/mgpai22/sublens/internal/ocr"
	"github.com/mgpai22/sublens/internal/subtitle"
	"github.com/mgpai22/sublens/internal/video"
)

// Request describes one extraction. A nil End means the whole video.
type Request struct {
	Path           string
	Start          float64
	End            *float64
	Interval       float64
	Region         Region
	MergeThreshold float64 // <= 0 means DefaultMergeThreshold
	MinDuration    float64 // <= 0 means subtitle.DefaultMinDuration
	Concurrency    int     // <= 1 recognizes frames one at a time
}

func (r Request) validate() error {
	if !(r.Interval > 0) {
		return fmt.Errorf("%w: frame interval must be positive, got %v", ErrInvalidParameter, r.Interval)
	}
	if r.Start < 0 {
		return fmt.Errorf("%w: start time must not be negative", ErrInvalidParameter)
	}
	if r.End != nil && *r.End < 0 {
		return fmt.Errorf("%w: end time must not be negative", ErrInvalidParameter)
	}
	return r.Region.Validate()
}

func (r Request) mergeThreshold() float64 {
	if r.MergeThreshold > 0 {
		return r.MergeThreshold
	}
	return DefaultMergeThreshold
}

func (r Request) minDuration() float64 {
	if r.MinDuration > 0 {
		return r.MinDuration
	}
	return subtitle.DefaultMinDuration
}

// Result of an extraction.
type Result struct {
	SRT            string
	Entries        []MergedEntry
	Outcomes       []FrameOutcome
	Skips          []FrameSkip
	Sampled        int
	Metadata       video.Metadata
	ProcessingTime time.Duration
}

// Blocks lays out the entries as timed subtitle blocks.
func (r *Result) Blocks(interval, minDuration float64) []subtitle.Block {
	return subtitle.Blocks(r.Entries, interval, minDuration)
}

// Extractor runs the full pipeline against one decoder and one recognizer.
type Extractor struct {
	Decoder    video.Decoder
	Recognizer ocr.Recognizer
	Logger     *logging.Logger
}

func NewExtractor(decoder video.Decoder, recognizer ocr.Recognizer, logger *logging.Logger) *Extractor {
	return &Extractor{
		Decoder:    decoder,
		Recognizer: recognizer,
		Logger:     logging.OrNop(logger),
	}
}

// Extract samples, recognizes and merges subtitles from req.Path. Only
// invalid parameters and an unreadable video fail the call; per-frame
// problems show up in Result.Skips and Result.Outcomes.
func (e *Extractor) Extract(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	log := logging.OrNop(e.Logger)

	if err := req.validate(); err != nil {
		return nil, err
	}
	if e.Decoder == nil || e.Recognizer == nil {
		return nil, fmt.Errorf("extractor is missing a decoder or recognizer")
	}

	src, err := e.Decoder.Open(ctx, req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVideoUnreadable, err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.Debugw("failed to release decoder", "path", req.Path, "error", cerr)
		}
	}()

	meta := src.Metadata()
	span := TimeRange{Start: req.Start, End: meta.Duration()}
	if req.End != nil {
		span.End = *req.End
	}

	timestamps, err := span.Timestamps(req.Interval)
	if err != nil {
		return nil, err
	}

	log.Infow("sampling frames",
		"path", req.Path,
		"start", span.Start,
		"end", span.End,
		"interval", req.Interval,
		"samples", len(timestamps),
		"fps", meta.FPS,
		"region", req.Region.Normalize().String(),
		"model", ocr.ModelName(e.Recognizer),
	)

	frames, skips := SampleFrames(ctx, src, meta.FPS, timestamps, req.Region.Normalize())
	for _, s := range skips {
		log.Debugw("frame skipped", "timestamp", s.Timestamp, "reason", s.Reason, "error", s.Err)
	}

	outcomes := RecognizeFrames(ctx, e.Recognizer, frames, req.Concurrency)
	for _, o := range outcomes {
		switch o.Status {
		case StatusFailed:
			log.Warnw("recognition failed", "timestamp", o.Timestamp, "error", o.Err)
		case StatusNoText:
			log.Debugw("no subtitle in frame", "timestamp", o.Timestamp)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extraction cancelled: %w", err)
	}

	entries := Merge(Recognized(outcomes), req.mergeThreshold())
	result := &Result{
		SRT:            subtitle.Render(entries, req.Interval, req.minDuration()),
		Entries:        entries,
		Outcomes:       outcomes,
		Skips:          skips,
		Sampled:        len(frames),
		Metadata:       meta,
		ProcessingTime: time.Since(started),
	}

	log.Infow("extraction complete",
		"path", req.Path,
		"frames", result.Sampled,
		"skipped", len(skips),
		"entries", len(entries),
		"duration", result.ProcessingTime.Round(time.Millisecond),
	)
	return result, nil
}
