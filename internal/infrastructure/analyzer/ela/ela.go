// Package ela implements the compression-artifact signal: error level
// analysis over a JPEG re-encode of the input raster. Regions whose pixels
// survive a second compression with unusually high residual error are likely
// to have been pasted or repainted after the original save.
package ela

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os"

	"github.com/forgesight/forgesight/internal/core/domain"
	"github.com/forgesight/forgesight/internal/core/ports"
	"github.com/forgesight/forgesight/internal/infrastructure/imageprep"
)

type Analyzer struct {
	cfg     domain.AnalysisConfig
	tempDir string
}

func New(cfg domain.AnalysisConfig, tempDir string) *Analyzer {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Analyzer{cfg: cfg, tempDir: tempDir}
}

func (a *Analyzer) Name() domain.SignalName { return domain.SignalELA }

func (a *Analyzer) Analyze(ctx context.Context, in ports.AnalyzerInput) (domain.SignalResult, error) {
	img, err := imageprep.Decode(in.ImagePath)
	if err != nil {
		return domain.SignalResult{}, domain.WrapError(domain.ErrAnalyzerFailure, "ela: decode input", err)
	}
	original := imageprep.ToRGBA(img)

	recompressed, err := a.recompress(original)
	if err != nil {
		return domain.SignalResult{}, domain.WrapError(domain.ErrAnalyzerFailure, "ela: recompress", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.SignalResult{}, err
	}

	diff := residual(original, recompressed)
	normalize(diff)
	mask := threshold(diff, a.cfg.ELADiffThreshold)
	if err := ctx.Err(); err != nil {
		return domain.SignalResult{}, err
	}

	regions := a.findRegions(mask, diff)

	w := diff.Rect.Dx()
	h := diff.Rect.Dy()
	suspiciousArea := 0
	findings := make([]domain.Finding, 0, len(regions))
	for _, r := range regions {
		suspiciousArea += r.area
		findings = append(findings, domain.Finding{
			Kind:        "editing_artifacts",
			Confidence:  r.confidence,
			Description: fmt.Sprintf("Editing artifacts detected (confidence: %v%%)", r.confidence),
			BBox:        &domain.BoundingBox{X: r.bounds.Min.X, Y: r.bounds.Min.Y, W: r.bounds.Dx(), H: r.bounds.Dy()},
			Details:     map[string]any{"area": r.area},
			Signal:      domain.SignalELA,
		})
	}

	ratio := float64(suspiciousArea) / float64(w*h)
	overall := domain.Clamp100(ratio * 200)

	return domain.SignalResult{
		Name:              domain.SignalELA,
		OverallConfidence: overall,
		Findings:          findings,
		Summary:           summarize(regions, overall),
		Status:            domain.StatusCompleted,
	}, nil
}

// recompress encodes the raster to a scratch JPEG at the configured quality
// and decodes it back. The scratch file never outlives the call.
func (a *Analyzer) recompress(img *image.RGBA) (*image.RGBA, error) {
	scratch, err := os.CreateTemp(a.tempDir, "ela-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("create scratch jpeg: %w", err)
	}
	defer os.Remove(scratch.Name())

	err = jpeg.Encode(scratch, img, &jpeg.Options{Quality: a.cfg.ELAQuality})
	if closeErr := scratch.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("encode scratch jpeg: %w", err)
	}

	decoded, err := imageprep.Decode(scratch.Name())
	if err != nil {
		return nil, err
	}
	return imageprep.ToRGBA(decoded), nil
}

// residual computes the per-pixel absolute difference between the two
// rasters, collapsed to a grayscale intensity via the usual luminance
// weights.
func residual(a, b *image.RGBA) *image.Gray {
	w := a.Rect.Dx()
	h := a.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := a.PixOffset(x, y)
			dr := absDiff(a.Pix[i], b.Pix[i])
			dg := absDiff(a.Pix[i+1], b.Pix[i+1])
			db := absDiff(a.Pix[i+2], b.Pix[i+2])
			lum := 0.299*float64(dr) + 0.587*float64(dg) + 0.114*float64(db)
			out.Pix[out.PixOffset(x, y)] = uint8(lum)
		}
	}
	return out
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// normalize stretches the residual to the full 0..255 range in place. A
// perfectly flat residual stays all zero.
func normalize(g *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, v := range g.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		for i := range g.Pix {
			g.Pix[i] = 0
		}
		return
	}
	span := float64(hi - lo)
	for i, v := range g.Pix {
		g.Pix[i] = uint8(float64(v-lo) / span * 255)
	}
}

func threshold(g *image.Gray, cutoff uint8) []bool {
	mask := make([]bool, len(g.Pix))
	for i, v := range g.Pix {
		mask[i] = v > cutoff
	}
	return mask
}

type region struct {
	bounds     image.Rectangle
	area       int
	confidence float64
}

// findRegions extracts 4-connected components from the mask and keeps those
// large and intense enough to be worth reporting.
func (a *Analyzer) findRegions(mask []bool, intensity *image.Gray) []region {
	w := intensity.Rect.Dx()
	h := intensity.Rect.Dy()
	visited := make([]bool, len(mask))
	var regions []region

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}

		// BFS flood fill from the seed pixel.
		queue := []int{start}
		visited[start] = true
		area := 0
		sum := 0.0
		minX, minY := w, h
		maxX, maxY := 0, 0
		for len(queue) > 0 {
			idx := queue[0]
			queue = queue[1:]
			x, y := idx%w, idx/w

			area++
			sum += float64(intensity.Pix[idx])
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}

			for _, n := range [4]int{idx - w, idx + w, idx - 1, idx + 1} {
				if n < 0 || n >= len(mask) || !mask[n] || visited[n] {
					continue
				}
				// Horizontal neighbors must not wrap across rows.
				if (n == idx-1 || n == idx+1) && n/w != y {
					continue
				}
				visited[n] = true
				queue = append(queue, n)
			}
		}

		if area < a.cfg.ELAMinRegionArea {
			continue
		}
		conf := sum / float64(area) / 255 * 100
		if conf < a.cfg.ELAMinRegionConfidence {
			continue
		}
		regions = append(regions, region{
			bounds:     image.Rect(minX, minY, maxX+1, maxY+1),
			area:       area,
			confidence: round2(conf),
		})
	}
	return regions
}

func summarize(regions []region, overall float64) string {
	if len(regions) == 0 {
		if overall < 20 {
			return "No significant tampering detected. Document appears authentic."
		}
		return "Low confidence findings. Document likely authentic with minor compression artifacts."
	}

	high, medium, low := 0, 0, 0
	for _, r := range regions {
		switch {
		case r.confidence >= 70:
			high++
		case r.confidence >= 40:
			medium++
		default:
			low++
		}
	}

	switch {
	case high >= 2:
		return fmt.Sprintf("High confidence tampering detected in %d regions. Document shows clear signs of manipulation.", high)
	case high == 1 && medium >= 1:
		return fmt.Sprintf("Suspicious editing detected. %d high confidence and %d medium confidence regions found.", high, medium)
	case medium >= 2:
		return fmt.Sprintf("Multiple suspicious regions detected (%d regions). Document may have been altered.", medium)
	case low >= 3:
		return fmt.Sprintf("Minor anomalies detected in %d regions. Could be compression artifacts or minor edits.", len(regions))
	default:
		return fmt.Sprintf("%d potential tampering regions detected. Further verification recommended.", len(regions))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
