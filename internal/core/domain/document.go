package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the service-level record of one uploaded file. The forensic
// verdict and fused confidence are denormalized onto it once analysis
// completes so listings do not need the full report.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Verdict     Verdict        `json:"verdict,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	ReportPath  string         `json:"report_path,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Assessment is the slice of a FusionResult persisted onto the document row.
type Assessment struct {
	Verdict    Verdict `json:"verdict"`
	Confidence float64 `json:"confidence"`
	ReportPath string  `json:"report_path"`
}
