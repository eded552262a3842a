package domain

import (
	"fmt"
	"math"
	"time"
)

// AnalysisConfig carries every tunable of the forensic pipeline. The zero
// value is not usable; start from DefaultAnalysisConfig.
type AnalysisConfig struct {
	// Compression-artifact signal.
	ELAQuality             int     // JPEG re-encode quality
	ELADiffThreshold       uint8   // residual intensity above which a pixel is suspicious
	ELAMinRegionArea       int     // connected components below this area are noise
	ELAMinRegionConfidence float64 // regions below this mean-intensity confidence are dropped

	// Text-layout signal.
	OCRMinWordConfidence float64 // words the engine is less sure about are ignored
	OCRMinRegionSize     int     // minimum word box side in pixels
	OCRLineTolerance     int     // vertical distance grouping words into one line
	OCRAlignmentSlack    int     // horizontal offset within a line considered aligned
	OCRMaxWordGap        int     // horizontal gap beyond which adjacent words are spacing anomalies

	// Orchestration.
	SignalTimeout time.Duration // hard per-analyzer deadline
	SoftDeadline  time.Duration // end-to-end budget; overruns are logged, never enforced

	// Fusion.
	ELAWeight       float64
	OCRWeight       float64
	MetadataWeight  float64
	ReviewThreshold float64 // single-signal confidence that forces NEEDS_REVIEW

	MaxCombinedFindings int
	MaxRecommendations  int
}

func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		ELAQuality:             95,
		ELADiffThreshold:       10,
		ELAMinRegionArea:       100,
		ELAMinRegionConfidence: 20,

		OCRMinWordConfidence: 30,
		OCRMinRegionSize:     10,
		OCRLineTolerance:     10,
		OCRAlignmentSlack:    20,
		OCRMaxWordGap:        100,

		SignalTimeout: 15 * time.Second,
		SoftDeadline:  20 * time.Second,

		ELAWeight:       0.4,
		OCRWeight:       0.3,
		MetadataWeight:  0.3,
		ReviewThreshold: 70,

		MaxCombinedFindings: 10,
		MaxRecommendations:  5,
	}
}

func (c AnalysisConfig) Validate() error {
	if c.ELAQuality < 1 || c.ELAQuality > 100 {
		return fmt.Errorf("ela quality must be in [1, 100], got %d", c.ELAQuality)
	}
	if c.ELAMinRegionArea <= 0 {
		return fmt.Errorf("ela min region area must be positive, got %d", c.ELAMinRegionArea)
	}
	if c.OCRMinWordConfidence < 0 || c.OCRMinWordConfidence > 100 {
		return fmt.Errorf("ocr min word confidence must be in [0, 100], got %v", c.OCRMinWordConfidence)
	}
	if c.OCRMinRegionSize <= 0 {
		return fmt.Errorf("ocr min region size must be positive, got %d", c.OCRMinRegionSize)
	}
	if c.SignalTimeout <= 0 {
		return fmt.Errorf("signal timeout must be positive, got %v", c.SignalTimeout)
	}
	if c.SoftDeadline < c.SignalTimeout {
		return fmt.Errorf("soft deadline %v must not be shorter than signal timeout %v", c.SoftDeadline, c.SignalTimeout)
	}
	sum := c.ELAWeight + c.OCRWeight + c.MetadataWeight
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("signal weights must sum to 1, got %v", sum)
	}
	if c.ELAWeight < 0 || c.OCRWeight < 0 || c.MetadataWeight < 0 {
		return fmt.Errorf("signal weights must be non-negative")
	}
	if c.ReviewThreshold < 0 || c.ReviewThreshold > 100 {
		return fmt.Errorf("review threshold must be in [0, 100], got %v", c.ReviewThreshold)
	}
	if c.MaxCombinedFindings <= 0 {
		return fmt.Errorf("max combined findings must be positive, got %d", c.MaxCombinedFindings)
	}
	if c.MaxRecommendations <= 0 {
		return fmt.Errorf("max recommendations must be positive, got %d", c.MaxRecommendations)
	}
	return nil
}
