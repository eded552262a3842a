// Package textlayout implements the text-layout signal: OCR the document,
// then look for geometry and formatting irregularities that hand-edited text
// exhibits and typeset text does not.
package textlayout

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"strings"
	"unicode"

	"github.com/forgesight/forgesight/internal/core/domain"
	"github.com/forgesight/forgesight/internal/core/ports"
	"github.com/forgesight/forgesight/internal/infrastructure/imageprep"
)

const (
	thresholdWindow = 11
	thresholdBias   = 2
)

type Analyzer struct {
	cfg     domain.AnalysisConfig
	engine  ports.OCREngine
	opts    ports.OCROptions
	tempDir string
}

func New(cfg domain.AnalysisConfig, engine ports.OCREngine, opts ports.OCROptions, tempDir string) *Analyzer {
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Analyzer{cfg: cfg, engine: engine, opts: opts, tempDir: tempDir}
}

func (a *Analyzer) Name() domain.SignalName { return domain.SignalOCR }

func (a *Analyzer) Analyze(ctx context.Context, in ports.AnalyzerInput) (domain.SignalResult, error) {
	img, err := imageprep.Decode(in.ImagePath)
	if err != nil {
		return domain.SignalResult{}, domain.WrapError(domain.ErrAnalyzerFailure, "textlayout: decode input", err)
	}

	prepared := medianBlur3(dilate(binarize(imageprep.ToGray(img), thresholdWindow, thresholdBias)))
	if err := ctx.Err(); err != nil {
		return domain.SignalResult{}, domain.WrapError(domain.ErrAnalyzerTimeout, "textlayout: preprocess", err)
	}

	scratch, cleanup, err := a.writeScratch(prepared)
	if err != nil {
		return domain.SignalResult{}, domain.WrapError(domain.ErrAnalyzerFailure, "textlayout: write scratch", err)
	}
	defer cleanup()

	words, err := a.engine.Detect(ctx, scratch, a.opts)
	if err != nil {
		return domain.SignalResult{}, domain.WrapError(domain.ErrAnalyzerFailure, "textlayout: ocr", err)
	}

	regions := a.filterWords(words)
	findings := a.detect(regions)
	overall := a.confidence(findings, len(regions))

	return domain.SignalResult{
		Name:              domain.SignalOCR,
		OverallConfidence: round2(overall),
		Findings:          findings,
		Summary:           summarize(findings, overall),
		Status:            domain.StatusCompleted,
	}, nil
}

// writeScratch persists the preprocessed raster for the OCR engine, which
// reads from a file path. The cleanup func removes it.
func (a *Analyzer) writeScratch(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp(a.tempDir, "textlayout-*.png")
	if err != nil {
		return "", func() {}, fmt.Errorf("create scratch png: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	err = png.Encode(f, img)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("encode scratch png: %w", err)
	}
	return f.Name(), cleanup, nil
}

type textRegion struct {
	bbox       domain.BoundingBox
	text       string
	confidence float64
	fontSize   int
	lineNum    int
	blockNum   int
	parNum     int
}

// filterWords drops empty, low-confidence and tiny detections. What survives
// is what the inconsistency rules reason about.
func (a *Analyzer) filterWords(words []ports.OCRWord) []textRegion {
	regions := make([]textRegion, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" || w.Confidence < a.cfg.OCRMinWordConfidence {
			continue
		}
		if w.BBox.W < a.cfg.OCRMinRegionSize || w.BBox.H < a.cfg.OCRMinRegionSize {
			continue
		}
		regions = append(regions, textRegion{
			bbox:       w.BBox,
			text:       text,
			confidence: w.Confidence,
			fontSize:   w.BBox.H,
			lineNum:    w.LineNum,
			blockNum:   w.BlockNum,
			parNum:     w.ParNum,
		})
	}
	return regions
}

// detect runs the four inconsistency rules. With fewer than two regions there
// is nothing to compare and no findings are produced.
func (a *Analyzer) detect(regions []textRegion) []domain.Finding {
	findings := []domain.Finding{}
	if len(regions) < 2 {
		return findings
	}

	findings = append(findings, a.fontSizeFindings(regions)...)
	findings = append(findings, a.alignmentFindings(regions)...)
	findings = append(findings, a.spacingFindings(regions)...)
	findings = append(findings, a.formattingFindings(regions)...)
	return findings
}

// fontSizeFindings flags visual lines whose word heights vary by more than
// 20% of the line mean. Word height stands in for font size.
func (a *Analyzer) fontSizeFindings(regions []textRegion) []domain.Finding {
	var findings []domain.Finding
	for lineIdx, line := range groupIntoLines(regions, a.cfg.OCRLineTolerance) {
		if len(line) < 2 {
			continue
		}
		mean, std := heightStats(line)
		if std <= mean*0.2 {
			continue
		}
		findings = append(findings, domain.Finding{
			Kind:        "font_size_inconsistency",
			Confidence:  math.Min(90, std*2),
			Description: fmt.Sprintf("Font size varies significantly within line %d", lineIdx),
			BBox:        boxPtr(line[0].bbox),
			Details: map[string]any{
				"regions":              boxes(line),
				"line":                 lineIdx,
				"mean_font_size":       round2(mean),
				"std_deviation":        round2(std),
				"variation_percentage": round2(std / mean * 100),
			},
			Signal: domain.SignalOCR,
		})
	}
	return findings
}

// alignmentFindings flags pairs of words that share a visual line (vertical
// overlap beyond half the shorter height, same engine line number) yet start
// at clearly different x positions.
func (a *Analyzer) alignmentFindings(regions []textRegion) []domain.Finding {
	var findings []domain.Finding
	for i := 0; i < len(regions)-1; i++ {
		for j := i + 1; j < len(regions); j++ {
			r1, r2 := regions[i], regions[j]

			overlap := min(r1.bbox.Bottom(), r2.bbox.Bottom()) - max(r1.bbox.Y, r2.bbox.Y)
			minHeight := min(r1.bbox.H, r2.bbox.H)
			if float64(overlap) <= float64(minHeight)*0.5 {
				continue
			}

			xDiff := abs(r1.bbox.X - r2.bbox.X)
			if xDiff < a.cfg.OCRAlignmentSlack || r1.lineNum != r2.lineNum {
				continue
			}
			findings = append(findings, domain.Finding{
				Kind:        "alignment_inconsistency",
				Confidence:  65,
				Description: "Text blocks on same line have different alignments",
				BBox:        boxPtr(r1.bbox),
				Details: map[string]any{
					"regions":     []domain.BoundingBox{r1.bbox, r2.bbox},
					"block1_text": truncate(r1.text, 20),
					"block2_text": truncate(r2.text, 20),
					"x_positions": []int{r1.bbox.X, r2.bbox.X},
					"difference":  xDiff,
				},
				Signal: domain.SignalOCR,
			})
		}
	}
	return findings
}

// spacingFindings flags unusually large horizontal gaps between words
// adjacent in recognition order, a fingerprint of deleted or inserted text.
func (a *Analyzer) spacingFindings(regions []textRegion) []domain.Finding {
	var findings []domain.Finding
	for i := 0; i < len(regions)-1; i++ {
		r1, r2 := regions[i], regions[i+1]
		gap := r2.bbox.X - r1.bbox.Right()
		if gap <= a.cfg.OCRMaxWordGap {
			continue
		}
		findings = append(findings, domain.Finding{
			Kind:        "abnormal_spacing",
			Confidence:  math.Min(80, float64(gap)/10),
			Description: "Abnormally large gap between text blocks",
			BBox:        boxPtr(r1.bbox),
			Details: map[string]any{
				"regions":     []domain.BoundingBox{r1.bbox, r2.bbox},
				"gap_pixels":  gap,
				"block1_text": truncate(r1.text, 20),
				"block2_text": truncate(r2.text, 20),
			},
			Signal: domain.SignalOCR,
		})
	}
	return findings
}

// formattingFindings flags short words with interior capitals that neither
// start with one nor are fully uppercase, e.g. "inVoice".
func (a *Analyzer) formattingFindings(regions []textRegion) []domain.Finding {
	var findings []domain.Finding
	for _, r := range regions {
		runes := []rune(r.text)
		if len(runes) <= 3 || len(runes) >= 10 {
			continue
		}
		hasLower, hasUpper := false, false
		for _, c := range runes {
			if unicode.IsLower(c) {
				hasLower = true
			}
			if unicode.IsUpper(c) {
				hasUpper = true
			}
		}
		if !hasLower || !hasUpper || unicode.IsUpper(runes[0]) || isAllUpper(runes) {
			continue
		}
		findings = append(findings, domain.Finding{
			Kind:        "mixed_formatting",
			Confidence:  70,
			Description: fmt.Sprintf("Mixed character formatting in text: '%s'", truncate(r.text, 30)),
			BBox:        boxPtr(r.bbox),
			Details: map[string]any{
				"text":   r.text,
				"length": len(runes),
			},
			Signal: domain.SignalOCR,
		})
	}
	return findings
}

// groupIntoLines buckets regions into visual lines by vertical position. The
// anchor y of a line is the first region that opened it; a region further
// than the tolerance from the anchor starts the next line.
func groupIntoLines(regions []textRegion, tolerance int) [][]textRegion {
	sorted := make([]textRegion, len(regions))
	copy(sorted, regions)
	sortStableByY(sorted)

	var lines [][]textRegion
	anchorY := 0
	for i, r := range sorted {
		if i == 0 || abs(r.bbox.Y-anchorY) > tolerance {
			lines = append(lines, []textRegion{r})
			anchorY = r.bbox.Y
			continue
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], r)
	}
	return lines
}

// confidence blends finding count against mean finding severity. A document
// with many recognized words and no findings converges on zero.
func (a *Analyzer) confidence(findings []domain.Finding, totalRegions int) float64 {
	if totalRegions == 0 {
		return 0
	}
	if len(findings) == 0 {
		return math.Max(0, 100-float64(totalRegions)*2)
	}

	countScore := math.Min(100, float64(len(findings))*20)
	severitySum := 0.0
	for _, f := range findings {
		severitySum += f.Confidence
	}
	avgSeverity := severitySum / float64(len(findings))
	return domain.Clamp100(countScore*0.4 + avgSeverity*0.6)
}

func summarize(findings []domain.Finding, overall float64) string {
	if len(findings) == 0 {
		if overall < 30 {
			return "No text inconsistencies detected. Document formatting appears consistent."
		}
		return "Minor text anomalies detected. Document likely authentic."
	}

	switch {
	case len(findings) >= 3:
		return fmt.Sprintf("Multiple text inconsistencies detected (%d issues). Document shows signs of text editing or manipulation.", len(findings))
	case len(findings) == 2:
		return "Two text inconsistencies detected. Document may have been altered."
	}

	kind := findings[0].Kind
	switch {
	case strings.Contains(kind, "font"):
		return "Font inconsistency detected. Text appears to have been edited."
	case strings.Contains(kind, "alignment"):
		return "Alignment inconsistency detected. Document formatting appears inconsistent."
	default:
		return "Text inconsistency detected. Further verification recommended."
	}
}

func heightStats(line []textRegion) (mean, std float64) {
	for _, r := range line {
		mean += float64(r.fontSize)
	}
	mean /= float64(len(line))
	for _, r := range line {
		d := float64(r.fontSize) - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(line)))
	return mean, std
}

func sortStableByY(regions []textRegion) {
	// Insertion sort keeps the OCR reading order among equal y values.
	for i := 1; i < len(regions); i++ {
		for j := i; j > 0 && regions[j].bbox.Y < regions[j-1].bbox.Y; j-- {
			regions[j], regions[j-1] = regions[j-1], regions[j]
		}
	}
}

func isAllUpper(runes []rune) bool {
	for _, c := range runes {
		if unicode.IsLower(c) {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func boxes(line []textRegion) []domain.BoundingBox {
	out := make([]domain.BoundingBox, len(line))
	for i, r := range line {
		out[i] = r.bbox
	}
	return out
}

func boxPtr(b domain.BoundingBox) *domain.BoundingBox { return &b }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
