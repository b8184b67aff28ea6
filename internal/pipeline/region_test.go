package pipeline

import (
	"errors"
	"image"
	"testing"
)

func TestRegionNormalize(t *testing.T) {
	tests := []struct {
		in, want Region
	}{
		{Region{10, 20, 30, 40}, Region{10, 20, 30, 40}},
		{Region{-5, -1, 30, 40}, Region{0, 0, 30, 40}},
		{Region{3, 4, 0, 0}, Region{3, 4, 1, 1}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("%v.Normalize() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRegionValidate(t *testing.T) {
	if err := (Region{0, 0, 0, 10}).Validate(); err != nil {
		t.Errorf("zero width should be accepted: %v", err)
	}
	if err := (Region{-3, -3, 10, 10}).Validate(); err != nil {
		t.Errorf("negative origin should be accepted: %v", err)
	}
	if err := (Region{0, 0, -1, 10}).Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative width: expected ErrInvalidParameter, got %v", err)
	}
	if err := (Region{0, 0, 10, -1}).Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative height: expected ErrInvalidParameter, got %v", err)
	}
}

func TestClampRegion(t *testing.T) {
	tests := []struct {
		name   string
		roi    Region
		w, h   int
		want   image.Rectangle
		wantOK bool
	}{
		{"inside", Region{10, 10, 20, 20}, 100, 50, image.Rect(10, 10, 30, 30), true},
		{"past right and bottom", Region{90, 40, 50, 50}, 100, 50, image.Rect(90, 40, 100, 50), true},
		{"origin outside frame", Region{150, 60, 10, 10}, 100, 50, image.Rect(99, 49, 100, 50), true},
		{"whole frame", Region{0, 0, 100, 50}, 100, 50, image.Rect(0, 0, 100, 50), true},
		{"negative origin", Region{-10, -10, 20, 20}, 100, 50, image.Rect(0, 0, 20, 20), true},
		{"empty frame", Region{0, 0, 10, 10}, 0, 0, image.Rectangle{}, false},
		{"zero height frame", Region{0, 0, 10, 10}, 10, 0, image.Rectangle{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClampRegion(tt.roi, tt.w, tt.h)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClampRegionAlwaysInsideFrame(t *testing.T) {
	sizes := []int{0, 1, 7, 64}
	origins := []int{-5, 0, 3, 63, 100}
	extents := []int{0, 1, 10, 200}

	for _, w := range sizes {
		for _, h := range sizes {
			frame := image.Rect(0, 0, w, h)
			for _, x := range origins {
				for _, y := range origins {
					for _, width := range extents {
						for _, height := range extents {
							roi := Region{x, y, width, height}
							got, ok := ClampRegion(roi, w, h)
							if !ok {
								if w > 0 && h > 0 {
									t.Errorf("ClampRegion(%v, %d, %d) unexpectedly empty", roi, w, h)
								}
								continue
							}
							if got.Empty() || !got.In(frame) {
								t.Errorf("ClampRegion(%v, %d, %d) = %v, not inside %v", roi, w, h, got, frame)
							}
						}
					}
				}
			}
		}
	}
}
