package ports

import (
	"context"
	"io"

	"github.com/forgesight/forgesight/internal/core/domain"
)

// AnalyzerInput carries the two views of one document an analyzer may need.
// DocumentPath is the stored original; ImagePath is the prepared raster
// (equal to DocumentPath when no conversion was needed).
type AnalyzerInput struct {
	DocumentPath string
	ImagePath    string
}

// SignalAnalyzer computes one forensic signal. Implementations return a
// completed SignalResult, or an error when the input cannot be analyzed at
// all; the fusion engine converts errors into degraded placeholders.
// Implementations must remove any scratch files on every exit path and must
// never panic past this boundary.
type SignalAnalyzer interface {
	Name() domain.SignalName
	Analyze(ctx context.Context, in AnalyzerInput) (domain.SignalResult, error)
}

// ImagePreparer normalizes a stored document into a raster image the pixel
// analyzers can decode. The cleanup func removes any intermediate file and
// is safe to call more than once.
type ImagePreparer interface {
	Prepare(ctx context.Context, path string) (imagePath string, cleanup func(), err error)
}

// OCRWord is one recognized word with its geometry, as reported by the
// external OCR engine.
type OCRWord struct {
	BBox       domain.BoundingBox
	Text       string
	Confidence float64
	LineNum    int
	BlockNum   int
	ParNum     int
}

// OCROptions exposes the recognized engine options.
type OCROptions struct {
	Language            string
	PageSegmentationMode int
	EngineMode           int
}

// OCREngine is the black-box text detection capability.
type OCREngine interface {
	Detect(ctx context.Context, imagePath string, opts OCROptions) ([]OCRWord, error)
}

// ObjectStorage stores uploaded documents and generated reports. Analyzers
// operate on real files, so the store must be able to surface an absolute
// filesystem path for a key.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	AbsolutePath(key string) (string, error)
}

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveAssessment(ctx context.Context, id string, assessment domain.Assessment) error
}

// MessageQueue publishes/consumes analysis requests.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// ReportRenderer turns a fusion result into downloadable artifacts.
type ReportRenderer interface {
	RenderJSON(result *domain.FusionResult) ([]byte, error)
	RenderXLSX(result *domain.FusionResult) ([]byte, error)
}
