// Package httpadapter exposes the forensic pipeline over HTTP.
package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/forgesight/forgesight/internal/core/ports"
	"github.com/forgesight/forgesight/internal/core/usecase"
)

// UploadObserver is notified about upload outcomes; wired to ingest metrics.
type UploadObserver func(status string, sizeBytes int64)

type Options struct {
	MaxUploadBytes      int64
	RateLimitRPS        float64
	RateLimitBurst      int
	MaxConcurrent       int
	BackpressureTimeout time.Duration
	UploadObserver      UploadObserver
}

type Router struct {
	ingest    ports.DocumentIngestor
	repo      ports.DocumentReader
	processor ports.DocumentProcessor
	pipeline  ports.ForensicPipeline
	storage   ports.ObjectStorage
	renderer  ports.ReportRenderer
	opts      Options
}

func NewRouter(
	ingest ports.DocumentIngestor,
	repo ports.DocumentReader,
	processor ports.DocumentProcessor,
	pipeline ports.ForensicPipeline,
	storage ports.ObjectStorage,
	renderer ports.ReportRenderer,
	opts Options,
) *Router {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.UploadObserver == nil {
		opts.UploadObserver = func(string, int64) {}
	}
	return &Router{
		ingest:    ingest,
		repo:      repo,
		processor: processor,
		pipeline:  pipeline,
		storage:   storage,
		renderer:  renderer,
		opts:      opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.documentSubresource)
	mux.HandleFunc("/v1/stats", rt.stats)
	mux.HandleFunc("/v1/admin/cache/reset", rt.resetCache)

	var handler http.Handler = mux
	if rt.opts.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.opts.MaxConcurrent, rt.opts.BackpressureTimeout)
	}
	if rt.opts.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		rt.opts.UploadObserver("rejected", 0)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.opts.UploadObserver("rejected", fileHeader.Size)
		writeError(w, err)
		return
	}

	rt.opts.UploadObserver("accepted", fileHeader.Size)
	writeJSON(w, http.StatusAccepted, doc)
}

// documentSubresource dispatches /v1/documents/{id}[/...] by suffix.
func (rt *Router) documentSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	switch sub {
	case "":
		rt.getDocumentByID(w, r, id)
	case "analysis":
		rt.runAnalysis(w, r, id)
	case "report":
		rt.downloadReport(w, r, id)
	case "report.xlsx":
		rt.downloadReportXLSX(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
	}
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// runAnalysis runs the pipeline synchronously for one document and returns
// the fusion result. Re-running for an already analyzed document is served
// from the cache.
func (rt *Router) runAnalysis(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := rt.processor.ProcessByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	result, ok := rt.pipeline.Cached(id)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "analysis produced no result"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) downloadReport(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	reader, err := rt.storage.Open(r.Context(), usecase.ReportKey(id))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found; run analysis first"})
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func (rt *Router) downloadReportXLSX(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	result, ok := rt.pipeline.Cached(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "analysis result not available; run analysis first"})
		return
	}
	payload, err := rt.renderer.RenderXLSX(result)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="report_`+id+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, rt.pipeline.Stats())
}

func (rt *Router) resetCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	rt.pipeline.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
