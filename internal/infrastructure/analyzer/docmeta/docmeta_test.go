package docmeta

import (
	"context"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forgesight/forgesight/internal/core/domain"
	"github.com/forgesight/forgesight/internal/core/ports"
)

type snifferFake struct {
	mediaType string
}

func (f *snifferFake) SniffMediaType(string) (string, error) { return f.mediaType, nil }

func writeGrayPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 180
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return path
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyzeImageWithoutEXIF(t *testing.T) {
	path := writeGrayPNG(t, t.TempDir(), "scan.png", 10, 10)
	a := New(domain.DefaultAnalysisConfig(), &snifferFake{mediaType: "image/png"})

	res, err := a.Analyze(context.Background(), ports.AnalyzerInput{DocumentPath: path, ImagePath: path})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Status != domain.StatusCompleted {
		t.Fatalf("status = %s", res.Status)
	}
	if len(res.Findings) != 1 || res.Findings[0].Kind != "missing_exif" {
		t.Fatalf("findings = %+v, want one missing_exif", res.Findings)
	}
	if res.Findings[0].Confidence != 60 {
		t.Fatalf("missing_exif confidence = %v, want 60", res.Findings[0].Confidence)
	}
	// Single unit-weight anomaly: 60 * (0.7 + 0.3*0.2) = 45.6.
	if res.OverallConfidence != 45.6 {
		t.Fatalf("confidence = %v, want 45.6", res.OverallConfidence)
	}
	if res.Summary != "Metadata anomaly detected. Document may have been altered." {
		t.Fatalf("summary = %q", res.Summary)
	}
}

func TestAnalyzeFailsOnMissingFile(t *testing.T) {
	a := New(domain.DefaultAnalysisConfig(), &snifferFake{mediaType: "image/png"})
	_, err := a.Analyze(context.Background(), ports.AnalyzerInput{DocumentPath: filepath.Join(t.TempDir(), "gone.png")})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrAnalyzerFailure) {
		t.Fatalf("expected ErrAnalyzerFailure, got %v", err)
	}
}

func TestCrossChecksMimeMismatch(t *testing.T) {
	a := New(domain.DefaultAnalysisConfig(), nil)

	anomalies := a.crossChecks("/uploads/photo.jpg", "image/png", 5000)
	if len(anomalies) != 1 {
		t.Fatalf("anomalies = %+v, want one", anomalies)
	}
	an := anomalies[0]
	if an.kind != "mime_mismatch" || an.confidence != 80 {
		t.Fatalf("anomaly = %+v", an)
	}
	if an.description != "File extension (.jpg) doesn't match actual type (image/png)" {
		t.Fatalf("description = %q", an.description)
	}

	if got := a.crossChecks("/uploads/photo.png", "image/png", 5000); len(got) != 0 {
		t.Fatalf("matching extension flagged: %+v", got)
	}
	// Unknown extensions carry no expectation.
	if got := a.crossChecks("/uploads/photo.webp", "image/webp", 5000); len(got) != 0 {
		t.Fatalf("unlisted extension flagged: %+v", got)
	}
}

func TestCrossChecksSuspiciousFileSize(t *testing.T) {
	// A uniform 500x500 PNG compresses far below a hundredth of its pixel
	// count, which is the rule's floor.
	path := writeGrayPNG(t, t.TempDir(), "big.png", 500, 500)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	a := New(domain.DefaultAnalysisConfig(), nil)

	anomalies := a.crossChecks(path, "image/png", info.Size())
	if len(anomalies) != 1 || anomalies[0].kind != "suspicious_file_size" {
		t.Fatalf("anomalies = %+v, want one suspicious_file_size", anomalies)
	}
	if anomalies[0].confidence != 65 {
		t.Fatalf("confidence = %v, want 65", anomalies[0].confidence)
	}
}

func TestFuseAnomalies(t *testing.T) {
	if got := fuseAnomalies(nil, 10); got != 95 {
		t.Fatalf("clean rich metadata = %v, want 95", got)
	}
	if got := fuseAnomalies(nil, 0); got != 50 {
		t.Fatalf("clean empty metadata = %v, want 50", got)
	}

	single := []anomaly{{kind: "missing_exif", confidence: 60}}
	if got := fuseAnomalies(single, 5); !almostEqual(got, 45.6) {
		t.Fatalf("single anomaly = %v, want 45.6", got)
	}

	// Date anomalies weigh 1.5, mime 1.3, the rest 1.0.
	weighted := []anomaly{
		{kind: "date_anomaly", confidence: 85},
		{kind: "mime_mismatch", confidence: 80},
		{kind: "missing_exif", confidence: 60},
	}
	avg := (85*1.5 + 80*1.3 + 60*1.0) / (1.5 + 1.3 + 1.0)
	want := avg * (0.7 + 0.3*(3.0/5.0))
	if got := fuseAnomalies(weighted, 5); !almostEqual(got, want) {
		t.Fatalf("weighted fusion = %v, want %v", got, want)
	}

	// Five or more anomalies saturate the count factor.
	many := make([]anomaly, 6)
	for i := range many {
		many[i] = anomaly{kind: "missing_exif", confidence: 100}
	}
	if got := fuseAnomalies(many, 5); !almostEqual(got, 100) {
		t.Fatalf("saturated fusion = %v, want 100", got)
	}
}

func TestSummarizeMetadata(t *testing.T) {
	cases := []struct {
		name      string
		anomalies []anomaly
		overall   float64
		want      string
	}{
		{"authentic", nil, 10, "No metadata anomalies detected. Document metadata appears authentic."},
		{"stripped", nil, 50, "Limited metadata available. Document may have been stripped of metadata."},
		{"three", []anomaly{{kind: "a"}, {kind: "b"}, {kind: "c"}}, 80, "Multiple metadata anomalies detected (3 issues). Strong evidence of document tampering."},
		{"two", []anomaly{{kind: "date_anomaly"}, {kind: "mime_mismatch"}}, 70, "Two metadata anomalies detected (date_anomaly, mime_mismatch). Document likely manipulated."},
		{"single date", []anomaly{{kind: "date_anomaly"}}, 60, "Date anomaly detected. Document creation/modification times inconsistent."},
		{"single mime", []anomaly{{kind: "mime_mismatch"}}, 60, "File type mismatch detected. Actual file type doesn't match extension."},
		{"single software", []anomaly{{kind: "editing_software"}}, 60, "Editing software signature detected. Document was created/edited with image software."},
		{"single other", []anomaly{{kind: "missing_exif"}}, 45, "Metadata anomaly detected. Document may have been altered."},
	}
	for _, tc := range cases {
		if got := summarize(tc.anomalies, tc.overall); got != tc.want {
			t.Fatalf("%s: summary = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCheckDateTime(t *testing.T) {
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	if an := checkDateTime("2024:02:28 09:30:00", mtime); an != nil {
		t.Fatalf("past capture date flagged: %+v", an)
	}

	future := checkDateTime("2024:06:01 09:30:00", mtime)
	if future == nil || future.kind != "date_anomaly" || future.confidence != 85 {
		t.Fatalf("future capture date = %+v", future)
	}

	malformed := checkDateTime("2024-06-01 09:30:00", mtime)
	if malformed == nil || malformed.kind != "date_format_error" || malformed.confidence != 50 {
		t.Fatalf("malformed timestamp = %+v", malformed)
	}
}

func TestGeographicPath(t *testing.T) {
	if !geographicPath("/uploads/site-map-scan.png") {
		t.Fatalf("map path not recognized")
	}
	if !geographicPath("/uploads/LOCATION_plan.pdf") {
		t.Fatalf("location path not recognized")
	}
	if geographicPath("/uploads/invoice.png") {
		t.Fatalf("plain document treated as geographic")
	}
}

func TestAnalyzePDFWithUnparseableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 not really a pdf"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	a := New(domain.DefaultAnalysisConfig(), nil)
	extracted := map[string]any{}
	anomalies := a.analyzePDF(path, extracted)
	if len(anomalies) != 1 {
		t.Fatalf("anomalies = %+v, want one", anomalies)
	}
	kind := anomalies[0].kind
	if kind != "analysis_error" && kind != "pdf_analysis_error" {
		t.Fatalf("anomaly kind = %q, want an analysis error", kind)
	}
}
