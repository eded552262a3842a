package localfs

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveOpenRemoveRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := s.Save(ctx, "reports/report_doc-1.json", strings.NewReader(`{"ok":true}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reader, err := s.Open(ctx, "reports/report_doc-1.json")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reader.Close()
	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != `{"ok":true}` {
		t.Fatalf("content = %s", content)
	}

	if err := s.Remove(ctx, "reports/report_doc-1.json"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := s.Open(ctx, "reports/report_doc-1.json"); err == nil {
		t.Fatalf("removed key still readable")
	}
}

func TestAbsolutePathStaysUnderBase(t *testing.T) {
	base := t.TempDir()
	s, err := New(base)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	path, err := s.AbsolutePath("doc-1_scan.png")
	if err != nil {
		t.Fatalf("AbsolutePath() error = %v", err)
	}
	if !strings.HasPrefix(path, base) {
		t.Fatalf("path %q outside base %q", path, base)
	}
	if filepath.Base(path) != "doc-1_scan.png" {
		t.Fatalf("path = %q", path)
	}
}

func TestResolveRejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, key := range []string{"../outside.txt", "reports/../../outside.txt"} {
		if _, err := s.AbsolutePath(key); err == nil {
			t.Fatalf("key %q must be rejected", key)
		}
		if err := s.Save(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Fatalf("Save with key %q must be rejected", key)
		}
	}
}
