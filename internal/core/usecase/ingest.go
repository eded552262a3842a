package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forgesight/forgesight/internal/core/domain"
	"github.com/forgesight/forgesight/internal/core/ports"
)

// MediaSniffer reports the actual media type of a stored file, independent
// of its extension.
type MediaSniffer interface {
	SniffMediaType(path string) (string, error)
}

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	sniffer MediaSniffer
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	sniffer MediaSniffer,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		sniffer: sniffer,
	}
}

// Upload validates and stores one document, registers it and schedules it
// for analysis. Validation is two-staged: extension allow-list before the
// write, content sniffing after it, so a renamed executable never survives
// on disk.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return nil, domain.WrapError(domain.ErrUnsupportedMedia, "validate upload",
			fmt.Errorf("extension %q is not allowed", ext))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	if err := uc.verifyStoredContent(ctx, storageKey); err != nil {
		_ = uc.storage.Remove(ctx, storageKey)
		return nil, err
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := uc.queue.PublishDocumentUploaded(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish analysis request: %w", err)
	}

	return doc, nil
}

func (uc *IngestDocumentUseCase) verifyStoredContent(_ context.Context, storageKey string) error {
	path, err := uc.storage.AbsolutePath(storageKey)
	if err != nil {
		return fmt.Errorf("resolve stored document path: %w", err)
	}
	mediaType, err := uc.sniffer.SniffMediaType(path)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "sniff upload", err)
	}
	if !strings.HasPrefix(mediaType, "image/") && mediaType != "application/pdf" {
		return domain.WrapError(domain.ErrUnsupportedMedia, "validate upload",
			errors.New("content is neither an image nor a PDF"))
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
