package ports

import (
	"context"
	"io"

	"github.com/forgesight/forgesight/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// ForensicPipeline is the inbound contract for document analysis. Analyze
// always returns a well-formed FusionResult; analyzer failures are folded
// into it, never surfaced as errors.
type ForensicPipeline interface {
	Analyze(ctx context.Context, documentID, filePath string) *domain.FusionResult
	Cached(documentID string) (*domain.FusionResult, bool)
	Stats() domain.ProcessingStats
	Reset()
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous analysis of an
// uploaded document: run the pipeline, persist the report, update the record.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
