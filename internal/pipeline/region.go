package pipeline

import (
	"fmt"
	"image"
)

// Region is a crop rectangle in pixels relative to the frame's top-left corner.
type Region struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Validate rejects regions with a negative size.
func (r Region) Validate() error {
	if r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("%w: region size must not be negative, got %dx%d", ErrInvalidParameter, r.Width, r.Height)
	}
	return nil
}

// Normalize floors the origin at 0 and the size at 1.
func (r Region) Normalize() Region {
	return Region{
		X:      max(0, r.X),
		Y:      max(0, r.Y),
		Width:  max(1, r.Width),
		Height: max(1, r.Height),
	}
}

func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}

// ClampRegion fits roi into a w x h frame. The origin is clamped into the
// frame first, then the far corner, and the result is kept only if it still
// has area. The returned rectangle is relative to the frame origin.
func ClampRegion(roi Region, w, h int) (image.Rectangle, bool) {
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	roi = roi.Normalize()

	x1 := min(roi.X, w-1)
	y1 := min(roi.Y, h-1)
	x2 := min(x1+roi.Width, w)
	y2 := min(y1+roi.Height, h)

	if x2 <= x1 || y2 <= y1 {
		return image.Rectangle{}, false
	}
	return image.Rectangle{Min: image.Point{X: x1, Y: y1}, Max: image.Point{X: x2, Y: y2}}, true
}
