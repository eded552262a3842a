package textlayout

import (
	"image"
	"sort"
)

// binarize applies an adaptive mean threshold over a window around each
// pixel, using an integral image so the window mean is O(1) per pixel. A
// pixel turns white when it exceeds the local mean minus the bias.
func binarize(g *image.Gray, window int, bias float64) *image.Gray {
	w := g.Rect.Dx()
	h := g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	// integral[y][x] holds the sum over the rectangle [0,x) x [0,y).
	integral := make([]uint64, (w+1)*(h+1))
	stride := w + 1
	for y := 0; y < h; y++ {
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(g.Pix[y*g.Stride+x])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}

	r := window / 2
	for y := 0; y < h; y++ {
		y0 := max(0, y-r)
		y1 := min(h, y+r+1)
		for x := 0; x < w; x++ {
			x0 := max(0, x-r)
			x1 := min(w, x+r+1)
			sum := integral[y1*stride+x1] - integral[y0*stride+x1] -
				integral[y1*stride+x0] + integral[y0*stride+x0]
			mean := float64(sum) / float64((x1-x0)*(y1-y0))
			if float64(g.Pix[y*g.Stride+x]) > mean-bias {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// dilate grows white areas by one pixel in every direction, reconnecting
// strokes the thresholding broke apart.
func dilate(g *image.Gray) *image.Gray {
	w := g.Rect.Dx()
	h := g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v uint8
			for dy := -1; dy <= 1 && v == 0; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					if g.Pix[ny*g.Stride+nx] == 255 {
						v = 255
						break
					}
				}
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}

// medianBlur3 replaces each pixel with the median of its 3x3 neighborhood,
// suppressing salt-and-pepper noise left over from thresholding.
func medianBlur3(g *image.Gray) *image.Gray {
	w := g.Rect.Dx()
	h := g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	var win [9]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					win[n] = int(g.Pix[ny*g.Stride+nx])
					n++
				}
			}
			s := win[:n]
			sort.Ints(s)
			out.Pix[y*out.Stride+x] = uint8(s[n/2])
		}
	}
	return out
}
