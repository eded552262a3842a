package usecase

import (
	"bytes"
	"context"
	"fmt"

	"github.com/forgesight/forgesight/internal/core/domain"
	"github.com/forgesight/forgesight/internal/core/ports"
)

// ProcessDocumentUseCase is the worker-side flow: run the fusion pipeline
// for an uploaded document, persist the canonical report and record the
// assessment on the document row. The pipeline itself never fails; errors
// here come only from the registry and storage edges.
type ProcessDocumentUseCase struct {
	repo     ports.DocumentRepository
	storage  ports.ObjectStorage
	pipeline ports.ForensicPipeline
	renderer ports.ReportRenderer
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	pipeline ports.ForensicPipeline,
	renderer ports.ReportRenderer,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:     repo,
		storage:  storage,
		pipeline: pipeline,
		renderer: renderer,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.analyze(ctx, doc)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	reportKey, err := uc.persistReport(ctx, result)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	assessment := domain.Assessment{
		Verdict:    result.Verdict,
		Confidence: result.OverallConfidence,
		ReportPath: reportKey,
	}
	if err := uc.repo.SaveAssessment(ctx, documentID, assessment); err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) analyze(ctx context.Context, doc *domain.Document) (*domain.FusionResult, error) {
	path, err := uc.storage.AbsolutePath(doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("resolve stored document path: %w", err)
	}
	return uc.pipeline.Analyze(ctx, doc.ID, path), nil
}

func (uc *ProcessDocumentUseCase) persistReport(ctx context.Context, result *domain.FusionResult) (string, error) {
	payload, err := uc.renderer.RenderJSON(result)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	key := ReportKey(result.DocumentID)
	if err := uc.storage.Save(ctx, key, bytes.NewReader(payload)); err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}
	return key, nil
}

// ReportKey is the storage key under which a document's JSON report lives.
func ReportKey(documentID string) string {
	return fmt.Sprintf("reports/report_%s.json", documentID)
}
