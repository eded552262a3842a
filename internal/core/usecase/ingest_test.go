package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/forgesight/forgesight/internal/core/domain"
)

type ingestRepoFake struct {
	created *domain.Document
	err     error
}

func (f *ingestRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.err != nil {
		return f.err
	}
	f.created = doc
	return nil
}

func (f *ingestRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	return nil, errors.New("not implemented")
}

func (f *ingestRepoFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}

func (f *ingestRepoFake) SaveAssessment(context.Context, string, domain.Assessment) error {
	return nil
}

type storageFake struct {
	saved   map[string][]byte
	removed []string
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{saved: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = b
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := f.saved[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *storageFake) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	delete(f.saved, key)
	return nil
}

func (f *storageFake) AbsolutePath(key string) (string, error) {
	return "/data/storage/" + key, nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentUploaded(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentUploaded(context.Context, func(context.Context, string) error) error {
	return nil
}

type snifferFake struct {
	mediaType string
	err       error
}

func (f *snifferFake) SniffMediaType(string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.mediaType, nil
}

func TestUploadSuccess(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := newStorageFake()
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(repo, storage, queue, &snifferFake{mediaType: "image/png"})

	doc, err := uc.Upload(context.Background(), "scan copy.png", "image/png", strings.NewReader("pngdata"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("status = %s, want %s", doc.Status, domain.StatusUploaded)
	}
	if !strings.HasSuffix(doc.StoragePath, "_scan_copy.png") {
		t.Fatalf("storage path %q not sanitized", doc.StoragePath)
	}
	if _, ok := storage.saved[doc.StoragePath]; !ok {
		t.Fatalf("document content not written to storage")
	}
	if repo.created == nil || repo.created.ID != doc.ID {
		t.Fatalf("document record not created")
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("analysis request not published: %v", queue.published)
	}
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	storage := newStorageFake()
	uc := NewIngestDocumentUseCase(&ingestRepoFake{}, storage, &queueFake{}, &snifferFake{mediaType: "image/png"})

	_, err := uc.Upload(context.Background(), "payload.exe", "application/octet-stream", strings.NewReader("MZ"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
	if len(storage.saved) != 0 {
		t.Fatalf("nothing should be stored before validation passes")
	}
}

func TestUploadRemovesContentThatFailsSniffing(t *testing.T) {
	storage := newStorageFake()
	uc := NewIngestDocumentUseCase(&ingestRepoFake{}, storage, &queueFake{}, &snifferFake{mediaType: "text/plain; charset=utf-8"})

	_, err := uc.Upload(context.Background(), "renamed.png", "image/png", strings.NewReader("just text"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
	if len(storage.removed) != 1 {
		t.Fatalf("stored file must be removed after failed sniffing, removed = %v", storage.removed)
	}
	if len(storage.saved) != 0 {
		t.Fatalf("rejected upload left content in storage")
	}
}

func TestUploadAcceptsPDFContent(t *testing.T) {
	uc := NewIngestDocumentUseCase(&ingestRepoFake{}, newStorageFake(), &queueFake{}, &snifferFake{mediaType: "application/pdf"})

	if _, err := uc.Upload(context.Background(), "invoice.pdf", "application/pdf", strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
}

func TestUploadPropagatesQueueFailure(t *testing.T) {
	queue := &queueFake{err: errors.New("nats down")}
	uc := NewIngestDocumentUseCase(&ingestRepoFake{}, newStorageFake(), queue, &snifferFake{mediaType: "image/png"})

	_, err := uc.Upload(context.Background(), "scan.png", "image/png", strings.NewReader("pngdata"))
	if err == nil || !strings.Contains(err.Error(), "publish analysis request") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"scan copy.png", "scan_copy.png"},
		{"../../etc/passwd", "passwd"},
		{"отчёт.pdf", "_____.pdf"},
		{"report-2024_final.PDF", "report-2024_final.PDF"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
