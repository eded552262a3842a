package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/forgesight/forgesight/internal/core/domain"
)

func sampleResult() *domain.FusionResult {
	return &domain.FusionResult{
		DocumentID:        "doc-1",
		OverallConfidence: 42,
		Uncertainty:       58,
		Verdict:           domain.VerdictModeratelySuspicious,
		Signals: map[domain.SignalName]domain.SignalResult{
			domain.SignalELA: {
				Name:              domain.SignalELA,
				OverallConfidence: 90,
				Findings:          []domain.Finding{{Kind: "editing_artifacts", Confidence: 80}},
				Summary:           "suspicious",
				Status:            domain.StatusCompleted,
			},
			domain.SignalOCR:      domain.DegradedSignal(domain.SignalOCR, domain.StatusTimeout, ""),
			domain.SignalMetadata: domain.DegradedSignal(domain.SignalMetadata, domain.StatusError, ""),
		},
		CombinedFindings: []domain.Finding{
			{
				Kind:        "ELA",
				Confidence:  80,
				Description: "Editing artifacts detected (confidence: 80%)",
				BBox:        &domain.BoundingBox{X: 10, Y: 20, W: 30, H: 40},
				Signal:      domain.SignalELA,
			},
		},
		Recommendations: []string{"Review highlighted regions carefully"},
		Errors:          []string{"OCR analysis timeout"},
		ProcessingTime:  1.42,
	}
}

func fixedRenderer() *Renderer {
	return &Renderer{now: func() time.Time {
		return time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	}}
}

func TestRenderJSONShape(t *testing.T) {
	payload, err := fixedRenderer().RenderJSON(sampleResult())
	if err != nil {
		t.Fatalf("RenderJSON() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	body, ok := decoded["document_forensics_report"].(map[string]any)
	if !ok {
		t.Fatalf("missing report envelope: %v", decoded)
	}
	for _, key := range []string{"metadata", "overall_assessment", "signal_analysis", "detailed_findings", "recommendations"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("missing report section %q", key)
		}
	}

	metadata := body["metadata"].(map[string]any)
	if metadata["generated_at"] != "2026-08-21T10:00:00Z" {
		t.Fatalf("generated_at = %v", metadata["generated_at"])
	}
	if metadata["document_id"] != "doc-1" || metadata["analysis_version"] != domain.AnalysisVersion {
		t.Fatalf("metadata = %v", metadata)
	}

	assessment := body["overall_assessment"].(map[string]any)
	if assessment["verdict"] != string(domain.VerdictModeratelySuspicious) {
		t.Fatalf("verdict = %v", assessment["verdict"])
	}
	if assessment["confidence"] != 42.0 || assessment["uncertainty"] != 58.0 {
		t.Fatalf("assessment = %v", assessment)
	}

	signals := body["signal_analysis"].(map[string]any)
	if len(signals) != 3 {
		t.Fatalf("signal_analysis has %d entries", len(signals))
	}
	elaSummary := signals["ela"].(map[string]any)
	if elaSummary["findings_count"] != 1.0 || elaSummary["status"] != string(domain.StatusCompleted) {
		t.Fatalf("ela summary = %v", elaSummary)
	}

	findings := body["detailed_findings"].([]any)
	if len(findings) != 1 {
		t.Fatalf("detailed_findings = %v", findings)
	}
	bbox := findings[0].(map[string]any)["bbox"].([]any)
	if len(bbox) != 4 || bbox[0] != 10.0 {
		t.Fatalf("bbox = %v", bbox)
	}
}

func TestBuildNeverEmitsNullSections(t *testing.T) {
	result := &domain.FusionResult{
		DocumentID: "doc-err",
		Verdict:    domain.VerdictProcessingError,
		Signals: map[domain.SignalName]domain.SignalResult{
			domain.SignalELA:      domain.DegradedSignal(domain.SignalELA, domain.StatusError, ""),
			domain.SignalOCR:      domain.DegradedSignal(domain.SignalOCR, domain.StatusError, ""),
			domain.SignalMetadata: domain.DegradedSignal(domain.SignalMetadata, domain.StatusError, ""),
		},
	}
	payload, err := fixedRenderer().RenderJSON(result)
	if err != nil {
		t.Fatalf("RenderJSON() error = %v", err)
	}
	if bytes.Contains(payload, []byte(`"detailed_findings": null`)) {
		t.Fatalf("detailed_findings serialized as null")
	}
	if bytes.Contains(payload, []byte(`"recommendations": null`)) {
		t.Fatalf("recommendations serialized as null")
	}
}

func TestRenderXLSXSheets(t *testing.T) {
	payload, err := fixedRenderer().RenderXLSX(sampleResult())
	if err != nil {
		t.Fatalf("RenderXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("workbook not readable: %v", err)
	}
	defer f.Close()

	want := []string{"Overview", "Signals", "Findings", "Recommendations"}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sheets = %v, want %v", got, want)
		}
	}

	verdict, err := f.GetCellValue("Overview", "B4")
	if err != nil {
		t.Fatalf("read verdict cell: %v", err)
	}
	if verdict != string(domain.VerdictModeratelySuspicious) {
		t.Fatalf("verdict cell = %q", verdict)
	}

	header, err := f.GetCellValue("Signals", "A1")
	if err != nil {
		t.Fatalf("read signals header: %v", err)
	}
	if header != "Signal" {
		t.Fatalf("signals header = %q", header)
	}
}
