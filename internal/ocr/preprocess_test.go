package ocr

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func whiteCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

func TestPreprocessUniformImageIsBlack(t *testing.T) {
	out := Preprocess(whiteCanvas(20, 10))
	for i, v := range out.Pix {
		if v != 0 {
			t.Fatalf("pixel %d = %d, want 0 for uniform input", i, v)
		}
	}
}

func TestPreprocessKeepsStrokesDropsSpecks(t *testing.T) {
	img := whiteCanvas(30, 30)
	// 4x4 dark stroke
	draw.Draw(img, image.Rect(10, 10, 14, 14), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	// single-pixel speck
	img.Set(4, 4, color.Black)

	out := Preprocess(img)

	if got := out.GrayAt(11, 11).Y; got != 255 {
		t.Errorf("stroke interior = %d, want 255", got)
	}
	if got := out.GrayAt(4, 4).Y; got != 0 {
		t.Errorf("speck = %d, want 0 after opening", got)
	}
	if got := out.GrayAt(25, 25).Y; got != 0 {
		t.Errorf("background = %d, want 0", got)
	}
}

func TestPreprocessHandlesOffsetBounds(t *testing.T) {
	src := whiteCanvas(40, 40)
	sub := src.SubImage(image.Rect(10, 20, 30, 25))

	out := Preprocess(sub)
	if out.Bounds() != image.Rect(0, 0, 20, 5) {
		t.Errorf("bounds = %v, want origin-based 20x5", out.Bounds())
	}
}
