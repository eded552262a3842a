package textlayout

import (
	"image"
	"testing"
)

func TestBinarizeSeparatesInkFromPaper(t *testing.T) {
	// Light background with one dark stroke down the middle.
	g := image.NewGray(image.Rect(0, 0, 9, 9))
	for i := range g.Pix {
		g.Pix[i] = 220
	}
	for y := 0; y < 9; y++ {
		g.Pix[y*g.Stride+4] = 20
	}

	out := binarize(g, thresholdWindow, thresholdBias)
	if out.Pix[4*out.Stride+4] != 0 {
		t.Fatalf("ink pixel not black")
	}
	if out.Pix[4*out.Stride+0] != 255 {
		t.Fatalf("paper pixel not white")
	}
}

func TestDilateGrowsWhiteByOnePixel(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 5, 5))
	g.Pix[2*g.Stride+2] = 255

	out := dilate(g)
	for y := 1; y <= 3; y++ {
		for x := 1; x <= 3; x++ {
			if out.Pix[y*out.Stride+x] != 255 {
				t.Fatalf("pixel (%d,%d) not dilated", x, y)
			}
		}
	}
	if out.Pix[0] != 0 {
		t.Fatalf("corner pixel dilated too far")
	}
}

func TestMedianBlurRemovesIsolatedNoise(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 5, 5))
	// A single white speck on black.
	g.Pix[2*g.Stride+2] = 255

	out := medianBlur3(g)
	if out.Pix[2*out.Stride+2] != 0 {
		t.Fatalf("isolated speck survived the median filter")
	}
}
