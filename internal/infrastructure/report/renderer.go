// Package report turns fusion results into the canonical JSON report and an
// XLSX export for manual review workflows.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgesight/forgesight/internal/core/domain"
)

type Renderer struct {
	now func() time.Time
}

func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// Build assembles the report document from a fusion result. Signal order in
// the map is irrelevant for JSON output; keys are sorted during marshalling.
func (r *Renderer) Build(result *domain.FusionResult) domain.ForensicsReport {
	signalAnalysis := make(map[string]domain.SignalSummary, len(result.Signals))
	for _, name := range domain.Signals() {
		sig := result.Signals[name]
		signalAnalysis[string(name)] = domain.SignalSummary{
			Confidence:    sig.OverallConfidence,
			Summary:       sig.Summary,
			FindingsCount: len(sig.Findings),
			Status:        sig.Status,
		}
	}

	findings := result.CombinedFindings
	if findings == nil {
		findings = []domain.Finding{}
	}
	recommendations := result.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}

	return domain.ForensicsReport{
		Report: domain.ReportBody{
			Metadata: domain.ReportMetadata{
				GeneratedAt:     r.now().UTC().Format(time.RFC3339),
				DocumentID:      result.DocumentID,
				AnalysisVersion: domain.AnalysisVersion,
			},
			OverallAssessment: domain.OverallAssessment{
				Confidence:     result.OverallConfidence,
				Uncertainty:    result.Uncertainty,
				Verdict:        result.Verdict,
				ProcessingTime: result.ProcessingTime,
			},
			SignalAnalysis:   signalAnalysis,
			DetailedFindings: findings,
			Recommendations:  recommendations,
		},
	}
}

func (r *Renderer) RenderJSON(result *domain.FusionResult) ([]byte, error) {
	payload, err := json.MarshalIndent(r.Build(result), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return payload, nil
}
