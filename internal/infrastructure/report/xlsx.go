package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/forgesight/forgesight/internal/core/domain"
)

// RenderXLSX exports the report as a workbook with one sheet per report
// section.
func (r *Renderer) RenderXLSX(result *domain.FusionResult) ([]byte, error) {
	rep := r.Build(result).Report

	f := excelize.NewFile()
	defer f.Close()

	if err := writeOverview(f, rep); err != nil {
		return nil, err
	}
	if err := writeSignals(f, rep); err != nil {
		return nil, err
	}
	if err := writeFindings(f, rep.DetailedFindings); err != nil {
		return nil, err
	}
	if err := writeRecommendations(f, rep.Recommendations); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeOverview(f *excelize.File, rep domain.ReportBody) error {
	const sheet = "Overview"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename overview sheet: %w", err)
	}

	rows := [][]any{
		{"Document ID", rep.Metadata.DocumentID},
		{"Generated At", rep.Metadata.GeneratedAt},
		{"Analysis Version", rep.Metadata.AnalysisVersion},
		{"Verdict", string(rep.OverallAssessment.Verdict)},
		{"Confidence", rep.OverallAssessment.Confidence},
		{"Uncertainty", rep.OverallAssessment.Uncertainty},
		{"Processing Time (s)", rep.OverallAssessment.ProcessingTime},
	}
	return writeRows(f, sheet, rows)
}

func writeSignals(f *excelize.File, rep domain.ReportBody) error {
	const sheet = "Signals"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create signals sheet: %w", err)
	}

	rows := [][]any{{"Signal", "Confidence", "Findings", "Status", "Summary"}}
	for _, name := range domain.Signals() {
		sig := rep.SignalAnalysis[string(name)]
		rows = append(rows, []any{
			name.DisplayName(), sig.Confidence, sig.FindingsCount, string(sig.Status), sig.Summary,
		})
	}
	return writeRows(f, sheet, rows)
}

func writeFindings(f *excelize.File, findings []domain.Finding) error {
	const sheet = "Findings"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create findings sheet: %w", err)
	}

	rows := [][]any{{"Source", "Confidence", "Description", "Location"}}
	for _, finding := range findings {
		location := ""
		if finding.BBox != nil {
			location = fmt.Sprintf("x=%d y=%d %dx%d",
				finding.BBox.X, finding.BBox.Y, finding.BBox.W, finding.BBox.H)
		}
		rows = append(rows, []any{finding.Kind, finding.Confidence, finding.Description, location})
	}
	return writeRows(f, sheet, rows)
}

func writeRecommendations(f *excelize.File, recommendations []string) error {
	const sheet = "Recommendations"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create recommendations sheet: %w", err)
	}

	rows := make([][]any, 0, len(recommendations))
	for i, rec := range recommendations {
		rows = append(rows, []any{i + 1, rec})
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d on %s: %w", i+1, sheet, err)
		}
	}
	return nil
}
