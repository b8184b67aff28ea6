package ocr

import (
	"image"
	"image/color"
)

const (
	thresholdBlock = 11
	thresholdC     = 2
)

// Preprocess converts img to an inverted binary image: grayscale, adaptive
// mean threshold over an 11x11 window (offset 2), then a 2x2 morphological
// open to drop isolated specks. Text strokes come out white on black.
func Preprocess(img image.Image) *image.Gray {
	gray := toGray(img)
	return open2x2(adaptiveThresholdInv(gray))
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// Window means are taken over the part of the window inside the image.
func adaptiveThresholdInv(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	// integral image with a zero row and column
	stride := w + 1
	sum := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var row int64
		for x := 0; x < w; x++ {
			row += int64(src.Pix[y*src.Stride+x])
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + row
		}
	}

	r := thresholdBlock / 2
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-r), min(h, y+r+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-r), min(w, x+r+1)
			total := sum[y1*stride+x1] - sum[y0*stride+x1] - sum[y1*stride+x0] + sum[y0*stride+x0]
			count := int64((y1 - y0) * (x1 - x0))
			mean := float64(total) / float64(count)

			v := float64(src.Pix[y*src.Stride+x])
			if v > mean-thresholdC {
				dst.Pix[y*dst.Stride+x] = 0
			} else {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// erosion then dilation with a 2x2 square element
func open2x2(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	eroded := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(255)
			for dy := -1; dy <= 0; dy++ {
				for dx := -1; dx <= 0; dx++ {
					px, py := x+dx, y+dy
					if px < 0 || py < 0 {
						continue
					}
					v = min(v, src.Pix[py*src.Stride+px])
				}
			}
			eroded.Pix[y*eroded.Stride+x] = v
		}
	}

	opened := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			for dy := 0; dy <= 1; dy++ {
				for dx := 0; dx <= 1; dx++ {
					px, py := x+dx, y+dy
					if px >= w || py >= h {
						continue
					}
					v = max(v, eroded.Pix[py*eroded.Stride+px])
				}
			}
			opened.Pix[y*opened.Stride+x] = v
		}
	}
	return opened
}
