package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"math"
)

// FrameSource reads single decoded frames by index.
type FrameSource interface {
	ReadFrame(ctx context.Context, index int) (image.Image, error)
}

// SampledFrame is the cropped frame taken at Timestamp.
type SampledFrame struct {
	Timestamp float64
	Image     image.Image
}

// FrameIndex maps a timestamp to the frame shown at that time.
func FrameIndex(timestamp, fps float64) int {
	return int(math.Floor(timestamp * fps))
}

// SampleFrames reads and crops one frame per timestamp. Timestamps whose frame
// cannot be read or whose crop is empty are reported as skips instead. Output
// keeps the order of timestamps. The source is not closed.
func SampleFrames(
	ctx context.Context,
	src FrameSource,
	fps float64,
	timestamps []float64,
	roi Region,
) ([]SampledFrame, []FrameSkip) {
	frames := make([]SampledFrame, 0, len(timestamps))
	var skips []FrameSkip

	for _, ts := range timestamps {
		if ctx.Err() != nil {
			break
		}

		img, err := src.ReadFrame(ctx, FrameIndex(ts, fps))
		if err == nil && img == nil {
			err = fmt.Errorf("decoder returned no frame")
		}
		if err != nil {
			skips = append(skips, FrameSkip{Timestamp: ts, Reason: SkipFrameUnavailable, Err: err})
			continue
		}

		bounds := img.Bounds()
		rect, ok := ClampRegion(roi, bounds.Dx(), bounds.Dy())
		if !ok {
			skips = append(skips, FrameSkip{Timestamp: ts, Reason: SkipDegenerateRegion})
			continue
		}

		frames = append(frames, SampledFrame{
			Timestamp: ts,
			Image:     crop(img, rect.Add(bounds.Min)),
		})
	}

	return frames, skips
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// crop returns the part of img inside r, sharing pixels when the image type allows
func crop(img image.Image, r image.Rectangle) image.Image {
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
