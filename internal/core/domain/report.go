package domain

// The report shape below is an external contract: field names and nesting
// are consumed by downstream report storage and must not change.

const AnalysisVersion = "1.0"

type ForensicsReport struct {
	Report ReportBody `json:"document_forensics_report"`
}

type ReportBody struct {
	Metadata          ReportMetadata           `json:"metadata"`
	OverallAssessment OverallAssessment        `json:"overall_assessment"`
	SignalAnalysis    map[string]SignalSummary `json:"signal_analysis"`
	DetailedFindings  []Finding                `json:"detailed_findings"`
	Recommendations   []string                 `json:"recommendations"`
}

type ReportMetadata struct {
	GeneratedAt     string `json:"generated_at"`
	DocumentID      string `json:"document_id"`
	AnalysisVersion string `json:"analysis_version"`
}

type OverallAssessment struct {
	Confidence     float64 `json:"confidence"`
	Uncertainty    float64 `json:"uncertainty"`
	Verdict        Verdict `json:"verdict"`
	ProcessingTime float64 `json:"processing_time"`
}

type SignalSummary struct {
	Confidence    float64      `json:"confidence"`
	Summary       string       `json:"summary"`
	FindingsCount int          `json:"findings_count"`
	Status        SignalStatus `json:"status"`
}
