// Package docmeta implements the metadata-anomaly signal: EXIF, PDF info
// dictionary and file-level evidence of editing. Unlike the pixel signals it
// reads the stored original, not the prepared raster.
package docmeta

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgesight/forgesight/internal/core/domain"
	"github.com/forgesight/forgesight/internal/core/ports"
)

// anomaly is one metadata rule hit before conversion into a domain finding.
type anomaly struct {
	kind        string
	confidence  float64
	description string
	details     map[string]any
}

type Analyzer struct {
	cfg     domain.AnalysisConfig
	sniffer MediaSniffer
}

// MediaSniffer reports a file's media type from its content.
type MediaSniffer interface {
	SniffMediaType(path string) (string, error)
}

func New(cfg domain.AnalysisConfig, sniffer MediaSniffer) *Analyzer {
	return &Analyzer{cfg: cfg, sniffer: sniffer}
}

func (a *Analyzer) Name() domain.SignalName { return domain.SignalMetadata }

func (a *Analyzer) Analyze(ctx context.Context, in ports.AnalyzerInput) (domain.SignalResult, error) {
	path := in.DocumentPath

	info, err := os.Stat(path)
	if err != nil {
		return domain.SignalResult{}, domain.WrapError(domain.ErrAnalyzerFailure, "docmeta: stat document", err)
	}
	mimeType, err := a.sniffer.SniffMediaType(path)
	if err != nil {
		return domain.SignalResult{}, domain.WrapError(domain.ErrAnalyzerFailure, "docmeta: sniff media type", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.SignalResult{}, err
	}

	// Basic file facts always count toward extracted metadata richness.
	extracted := map[string]any{
		"filename":       filepath.Base(path),
		"file_size":      info.Size(),
		"file_extension": strings.ToLower(filepath.Ext(path)),
		"mime_type":      mimeType,
	}
	if sum, hashErr := fileSHA256(path); hashErr == nil {
		extracted["file_hash"] = sum
	}

	var anomalies []anomaly
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		anomalies = a.analyzeImage(path, info, extracted)
	case mimeType == "application/pdf":
		anomalies = a.analyzePDF(path, extracted)
	}
	anomalies = append(anomalies, a.crossChecks(path, mimeType, info.Size())...)

	overall := fuseAnomalies(anomalies, len(extracted))
	return domain.SignalResult{
		Name:              domain.SignalMetadata,
		OverallConfidence: round2(overall),
		Findings:          toFindings(anomalies),
		Summary:           summarize(anomalies, overall),
		Status:            domain.StatusCompleted,
	}, nil
}

// crossChecks are the rules that compare the file's claimed identity against
// its actual content, independent of format-specific metadata.
func (a *Analyzer) crossChecks(path, mimeType string, size int64) []anomaly {
	var anomalies []anomaly

	ext := strings.ToLower(filepath.Ext(path))
	expected := map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".pdf":  "application/pdf",
	}[ext]
	if expected != "" && mimeType != expected {
		anomalies = append(anomalies, anomaly{
			kind:        "mime_mismatch",
			confidence:  80,
			description: fmt.Sprintf("File extension (%s) doesn't match actual type (%s)", ext, mimeType),
			details: map[string]any{
				"extension":     ext,
				"expected_mime": expected,
				"actual_mime":   mimeType,
			},
		})
	}

	if strings.HasPrefix(mimeType, "image/") {
		if w, h, err := imageDimensions(path); err == nil && w > 0 && h > 0 {
			expectedMin := float64(w) * float64(h) * 0.1
			if float64(size) < expectedMin*0.1 {
				anomalies = append(anomalies, anomaly{
					kind:        "suspicious_file_size",
					confidence:  65,
					description: fmt.Sprintf("Image file size (%d bytes) suspiciously small for %dx%d resolution", size, w, h),
					details: map[string]any{
						"file_size":         size,
						"dimensions":        fmt.Sprintf("%dx%d", w, h),
						"expected_min_size": int(expectedMin),
					},
				})
			}
		}
	}
	return anomalies
}

// fuseAnomalies converts rule hits into the signal confidence. Date and MIME
// anomalies weigh heavier; more distinct anomalies push the score toward its
// weighted average, fewer pull it down.
func fuseAnomalies(anomalies []anomaly, extractedFields int) float64 {
	if len(anomalies) == 0 {
		if extractedFields > 0 {
			return math.Max(0, 100-float64(extractedFields)*0.5)
		}
		return 50
	}

	totalScore, weightSum := 0.0, 0.0
	for _, an := range anomalies {
		weight := 1.0
		if strings.Contains(an.kind, "date") {
			weight = 1.5
		} else if strings.Contains(an.kind, "mime") {
			weight = 1.3
		}
		totalScore += an.confidence * weight
		weightSum += weight
	}
	avg := totalScore / weightSum

	countFactor := math.Min(1, float64(len(anomalies))/5)
	return domain.Clamp100(avg * (0.7 + 0.3*countFactor))
}

func summarize(anomalies []anomaly, overall float64) string {
	if len(anomalies) == 0 {
		if overall < 30 {
			return "No metadata anomalies detected. Document metadata appears authentic."
		}
		return "Limited metadata available. Document may have been stripped of metadata."
	}

	switch {
	case len(anomalies) >= 3:
		return fmt.Sprintf("Multiple metadata anomalies detected (%d issues). Strong evidence of document tampering.", len(anomalies))
	case len(anomalies) == 2:
		kinds := make([]string, 0, 2)
		seen := map[string]bool{}
		for _, an := range anomalies {
			if !seen[an.kind] {
				seen[an.kind] = true
				kinds = append(kinds, an.kind)
			}
		}
		return fmt.Sprintf("Two metadata anomalies detected (%s). Document likely manipulated.", strings.Join(kinds, ", "))
	}

	kind := anomalies[0].kind
	switch {
	case strings.Contains(kind, "date"):
		return "Date anomaly detected. Document creation/modification times inconsistent."
	case strings.Contains(kind, "mime"):
		return "File type mismatch detected. Actual file type doesn't match extension."
	case strings.Contains(kind, "software"):
		return "Editing software signature detected. Document was created/edited with image software."
	default:
		return "Metadata anomaly detected. Document may have been altered."
	}
}

func toFindings(anomalies []anomaly) []domain.Finding {
	findings := make([]domain.Finding, 0, len(anomalies))
	for _, an := range anomalies {
		findings = append(findings, domain.Finding{
			Kind:        an.kind,
			Confidence:  an.confidence,
			Description: an.description,
			Details:     an.details,
			Signal:      domain.SignalMetadata,
		})
	}
	return findings
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
