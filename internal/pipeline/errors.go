package pipeline

import "errors"

var (
	// ErrInvalidParameter is returned for a non-positive sample interval or a
	// malformed region, before any frame is read.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrVideoUnreadable is returned when the decoder cannot open the source.
	ErrVideoUnreadable = errors.New("video unreadable")
)

// why a sample timestamp produced no frame
type SkipReason string

const (
	SkipFrameUnavailable SkipReason = "frame_unavailable"
	SkipDegenerateRegion SkipReason = "degenerate_region"
)

// FrameSkip records a timestamp that was dropped during sampling.
type FrameSkip struct {
	Timestamp float64
	Reason    SkipReason
	Err       error
}
