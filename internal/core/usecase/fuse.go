package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/forgesight/forgesight/internal/core/domain"
)

// fuse merges the per-signal results into the final FusionResult. Given
// identical signal results it is exactly reproducible: no map iteration
// order leaks into the output.
func (e *FusionEngine) fuse(documentID string, signals map[domain.SignalName]domain.SignalResult, errs []string) *domain.FusionResult {
	if errs == nil {
		errs = []string{}
	}

	// No completed signal means there is no evidence to weigh; a fused
	// score of 0 must not fall through the ladder to an authentic verdict.
	if !anySignalCompleted(signals) {
		return &domain.FusionResult{
			DocumentID:        documentID,
			OverallConfidence: 0,
			Uncertainty:       100,
			Verdict:           domain.VerdictProcessingError,
			Signals:           signals,
			CombinedFindings:  []domain.Finding{},
			Recommendations:   []string{"Processing failed. Please try again or upload a different document."},
			Errors:            errs,
		}
	}

	overall := e.cfg.ELAWeight*signals[domain.SignalELA].OverallConfidence +
		e.cfg.OCRWeight*signals[domain.SignalOCR].OverallConfidence +
		e.cfg.MetadataWeight*signals[domain.SignalMetadata].OverallConfidence
	overall = round2(overall)
	uncertainty := round2(math.Max(0, 100-overall))

	verdict := e.classifyVerdict(overall, signals)
	return &domain.FusionResult{
		DocumentID:        documentID,
		OverallConfidence: overall,
		Uncertainty:       uncertainty,
		Verdict:           verdict,
		Signals:           signals,
		CombinedFindings:  e.combineFindings(signals),
		Recommendations:   e.recommend(verdict, signals),
		Errors:            errs,
	}
}

// classifyVerdict applies the strict threshold ladder. Below the lowest rung
// it still escalates to NEEDS_REVIEW when any single signal scored above the
// review threshold, so one strongly anomalous signal cannot be diluted away
// by two quiet ones.
func (e *FusionEngine) classifyVerdict(overall float64, signals map[domain.SignalName]domain.SignalResult) domain.Verdict {
	switch {
	case overall >= 80:
		return domain.VerdictHighlySuspicious
	case overall >= 60:
		return domain.VerdictSuspicious
	case overall >= 40:
		return domain.VerdictModeratelySuspicious
	case overall >= 20:
		return domain.VerdictSlightlySuspicious
	}
	for _, name := range domain.Signals() {
		if signals[name].OverallConfidence > e.cfg.ReviewThreshold {
			return domain.VerdictNeedsReview
		}
	}
	return domain.VerdictLikelyAuthentic
}

// combineFindings concatenates all signals' findings tagged with their
// source, sorts descending by confidence (stable, so ties keep the
// ELA, OCR, Metadata source order) and truncates to the configured cap.
func (e *FusionEngine) combineFindings(signals map[domain.SignalName]domain.SignalResult) []domain.Finding {
	combined := make([]domain.Finding, 0, 8)
	for _, name := range domain.Signals() {
		for _, f := range signals[name].Findings {
			tagged := f
			tagged.Kind = name.FindingLabel()
			tagged.Signal = name
			combined = append(combined, tagged)
		}
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Confidence > combined[j].Confidence
	})
	if len(combined) > e.cfg.MaxCombinedFindings {
		combined = combined[:e.cfg.MaxCombinedFindings]
	}
	return combined
}

// recommend synthesizes actionable recommendations: a baseline set keyed by
// verdict tier plus signal-specific additions. The result is an
// insertion-ordered set capped at the configured size, so its contents and
// order are deterministic for identical inputs.
func (e *FusionEngine) recommend(verdict domain.Verdict, signals map[domain.SignalName]domain.SignalResult) []string {
	var candidates []string

	switch verdict {
	case domain.VerdictHighlySuspicious, domain.VerdictSuspicious:
		candidates = append(candidates,
			"Verify document with issuing authority",
			"Cross-check dates and amounts with original records",
			"Request certified copy for comparison",
		)
	case domain.VerdictModeratelySuspicious:
		candidates = append(candidates,
			"Review highlighted regions carefully",
			"Check for supporting documentation",
			"Consider digital signature verification",
		)
	case domain.VerdictSlightlySuspicious:
		candidates = append(candidates,
			"Minor anomalies detected - review if critical document",
			"Check for scanning artifacts",
			"Verify metadata consistency",
		)
	default:
		candidates = append(candidates, "Document appears authentic. No immediate action required.")
	}

	if signals[domain.SignalELA].OverallConfidence > 70 {
		candidates = append(candidates, "High ELA confidence: Document shows clear editing artifacts")
	}
	if len(signals[domain.SignalOCR].Findings) > 2 {
		candidates = append(candidates, "Multiple text inconsistencies: Verify font and formatting")
	}
	for _, f := range signals[domain.SignalMetadata].Findings {
		if strings.Contains(f.Kind, "date") {
			candidates = append(candidates, "Date anomalies: Verify creation and modification dates")
			break
		}
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, e.cfg.MaxRecommendations)
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == e.cfg.MaxRecommendations {
			break
		}
	}
	return out
}

func anySignalCompleted(signals map[domain.SignalName]domain.SignalResult) bool {
	for _, name := range domain.Signals() {
		if signals[name].Status == domain.StatusCompleted {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
