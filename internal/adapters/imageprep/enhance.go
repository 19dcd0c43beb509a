package imageprep

import (
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	// Boards darker than this mean L* are lit digits on a dark panel.
	darkBoardLightness = 0.45
	ocrContrast        = 0.4
	ocrThreshold       = 128
	lightnessSamples   = 64
)

// MeanLightness samples img on a grid and returns the mean CIE L* in [0,1].
func MeanLightness(img image.Image) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}
	step := max(1, max(b.Dx(), b.Dy())/lightnessSamples)
	var sum float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			l, _, _ := c.Lab()
			sum += l
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// IsDarkBoard reports whether img looks like lit digits on a dark panel.
func IsDarkBoard(img image.Image) bool {
	return MeanLightness(img) < darkBoardLightness
}

// ForOCR returns a black-on-white binarized copy of img for a plain OCR
// engine. Dark boards are inverted first.
func ForOCR(img image.Image) *image.Gray {
	gray := effect.Grayscale(img)
	if IsDarkBoard(img) {
		gray = effect.Invert(gray)
	}
	return segment.Threshold(adjust.Contrast(gray, ocrContrast), ocrThreshold)
}
