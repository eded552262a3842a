package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/forgesight/forgesight/internal/core/domain"
	"github.com/forgesight/forgesight/internal/core/ports"
)

// PipelineObserver receives pipeline-level measurements. Implementations
// must be safe for concurrent use.
type PipelineObserver interface {
	ObserveSignal(name domain.SignalName, status domain.SignalStatus, d time.Duration)
	ObserveVerdict(verdict domain.Verdict)
	ObserveProcess(d time.Duration)
	ObserveCacheHit()
}

type nopObserver struct{}

func (nopObserver) ObserveSignal(domain.SignalName, domain.SignalStatus, time.Duration) {}
func (nopObserver) ObserveVerdict(domain.Verdict)                                      {}
func (nopObserver) ObserveProcess(time.Duration)                                       {}
func (nopObserver) ObserveCacheHit()                                                   {}

// FusionEngine orchestrates the three forensic analyzers and fuses their
// signals into one verdict. It owns the result cache: entries are written
// once per document id and never mutated, and at most one computation per id
// is ever in flight.
type FusionEngine struct {
	cfg       domain.AnalysisConfig
	preparer  ports.ImagePreparer
	analyzers []ports.SignalAnalyzer
	logger    *slog.Logger
	observer  PipelineObserver

	flight singleflight.Group

	mu        sync.RWMutex
	cache     map[string]*domain.FusionResult
	durations map[string]float64
}

// NewFusionEngine validates the configuration and wires the engine. The
// analyzers slice must cover the three signals; order does not matter here,
// fusion order is fixed by domain.Signals.
func NewFusionEngine(
	cfg domain.AnalysisConfig,
	preparer ports.ImagePreparer,
	analyzers []ports.SignalAnalyzer,
	logger *slog.Logger,
	observer PipelineObserver,
) (*FusionEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("analysis config: %w", err)
	}
	seen := make(map[domain.SignalName]bool, len(analyzers))
	for _, a := range analyzers {
		seen[a.Name()] = true
	}
	for _, name := range domain.Signals() {
		if !seen[name] {
			return nil, fmt.Errorf("missing analyzer for signal %q", name)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &FusionEngine{
		cfg:       cfg,
		preparer:  preparer,
		analyzers: analyzers,
		logger:    logger,
		observer:  observer,
		cache:     make(map[string]*domain.FusionResult),
		durations: make(map[string]float64),
	}, nil
}

// Analyze runs the pipeline for one document, or returns the cached result
// verbatim. Concurrent calls for the same document id share one computation;
// calls for distinct ids proceed fully in parallel. The returned result is
// always well-formed: any failure mode is folded into it.
func (e *FusionEngine) Analyze(ctx context.Context, documentID, filePath string) *domain.FusionResult {
	if res, ok := e.Cached(documentID); ok {
		e.observer.ObserveCacheHit()
		return res
	}

	v, _, _ := e.flight.Do(documentID, func() (any, error) {
		// A racing caller may have completed while we queued.
		if res, ok := e.Cached(documentID); ok {
			return res, nil
		}
		res := e.run(ctx, documentID, filePath)
		e.store(documentID, res)
		return res, nil
	})
	return v.(*domain.FusionResult)
}

// Cached returns the stored result for a document id, if any.
func (e *FusionEngine) Cached(documentID string) (*domain.FusionResult, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	res, ok := e.cache[documentID]
	return res, ok
}

// Stats is a pure read of the engine's accumulated state.
func (e *FusionEngine) Stats() domain.ProcessingStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	avg := 0.0
	if len(e.durations) > 0 {
		sum := 0.0
		for _, d := range e.durations {
			sum += d
		}
		avg = sum / float64(len(e.durations))
	}
	return domain.ProcessingStats{
		DocumentsProcessed:    len(e.cache),
		AverageProcessingTime: avg,
		CacheSize:             len(e.cache),
	}
}

// Reset clears the result cache. Administrative use only.
func (e *FusionEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*domain.FusionResult)
	e.durations = make(map[string]float64)
}

func (e *FusionEngine) store(documentID string, res *domain.FusionResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache[documentID] = res
	e.durations[documentID] = res.ProcessingTime
}

func (e *FusionEngine) run(ctx context.Context, documentID, filePath string) *domain.FusionResult {
	start := time.Now()

	imagePath, cleanup, err := e.preparer.Prepare(ctx, filePath)
	if err != nil {
		e.logger.Error("document preparation failed",
			"document_id", documentID, "path", filePath, "error", err)
		res := e.errorResult(documentID, domain.WrapError(domain.ErrPipelineFailure, "prepare document", err))
		e.observer.ObserveVerdict(res.Verdict)
		return res
	}
	defer cleanup()

	in := ports.AnalyzerInput{DocumentPath: filePath, ImagePath: imagePath}
	signals, errs := e.fanOut(ctx, in)

	res := e.fuse(documentID, signals, errs)
	elapsed := time.Since(start)
	res.ProcessingTime = round2(elapsed.Seconds())

	if elapsed > e.cfg.SoftDeadline {
		e.logger.Warn("soft processing deadline exceeded",
			"document_id", documentID,
			"elapsed", elapsed,
			"deadline", e.cfg.SoftDeadline)
	}
	e.observer.ObserveVerdict(res.Verdict)
	e.observer.ObserveProcess(elapsed)
	return res
}

type signalOutcome struct {
	result domain.SignalResult
	err    error
}

// fanOut dispatches the three analyzers concurrently, each with its own
// deadline, and collects a uniform (result | timeout | error) per signal.
// Each outcome channel is buffered so a late analyzer can finish and run its
// cleanup without its result ever being observed past the deadline.
func (e *FusionEngine) fanOut(ctx context.Context, in ports.AnalyzerInput) (map[domain.SignalName]domain.SignalResult, []string) {
	type dispatched struct {
		name    domain.SignalName
		ch      chan signalOutcome
		ctx     context.Context
		cancel  context.CancelFunc
		started time.Time
	}

	tasks := make([]dispatched, 0, len(e.analyzers))
	for _, analyzer := range e.analyzers {
		analyzer := analyzer
		taskCtx, cancel := context.WithTimeout(ctx, e.cfg.SignalTimeout)
		d := dispatched{
			name:    analyzer.Name(),
			ch:      make(chan signalOutcome, 1),
			ctx:     taskCtx,
			cancel:  cancel,
			started: time.Now(),
		}
		tasks = append(tasks, d)

		go func() {
			defer func() {
				if r := recover(); r != nil {
					d.ch <- signalOutcome{err: fmt.Errorf("analyzer panic: %v", r)}
				}
			}()
			result, err := analyzer.Analyze(taskCtx, in)
			d.ch <- signalOutcome{result: result, err: err}
		}()
	}

	signals := make(map[domain.SignalName]domain.SignalResult, len(tasks))
	var errs []string

	for _, task := range tasks {
		label := task.name.FindingLabel()
		select {
		case out := <-task.ch:
			elapsed := time.Since(task.started)
			switch {
			case out.err != nil && isTimeout(out.err):
				errs = append(errs, fmt.Sprintf("%s analysis timeout", label))
				signals[task.name] = domain.DegradedSignal(task.name, domain.StatusTimeout, "")
				e.observer.ObserveSignal(task.name, domain.StatusTimeout, elapsed)
			case out.err != nil:
				errs = append(errs, fmt.Sprintf("%s error: %v", label, out.err))
				signals[task.name] = domain.DegradedSignal(task.name, domain.StatusError, "")
				e.observer.ObserveSignal(task.name, domain.StatusError, elapsed)
			default:
				signals[task.name] = out.result
				e.observer.ObserveSignal(task.name, out.result.Status, elapsed)
			}
		case <-task.ctx.Done():
			errs = append(errs, fmt.Sprintf("%s analysis timeout", label))
			signals[task.name] = domain.DegradedSignal(task.name, domain.StatusTimeout, "")
			e.observer.ObserveSignal(task.name, domain.StatusTimeout, e.cfg.SignalTimeout)
		}
		task.cancel()
	}
	return signals, errs
}

// isTimeout reports whether an analyzer-returned error is a deadline
// expiry rather than a genuine failure. Ctx-aware analyzers surface these
// themselves instead of being reaped by the fan-out select.
func isTimeout(err error) bool {
	return errors.Is(err, domain.ErrAnalyzerTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// errorResult synthesizes the PROCESSING_ERROR result for pipeline-level
// failures: every signal marked failed, zero confidence, one generic
// recommendation. The pipeline has no failure mode that returns less.
func (e *FusionEngine) errorResult(documentID string, cause error) *domain.FusionResult {
	signals := make(map[domain.SignalName]domain.SignalResult, 3)
	for _, name := range domain.Signals() {
		signals[name] = domain.DegradedSignal(name, domain.StatusError, "Analysis failed")
	}
	return &domain.FusionResult{
		DocumentID:        documentID,
		OverallConfidence: 0,
		Uncertainty:       100,
		Verdict:           domain.VerdictProcessingError,
		Signals:           signals,
		CombinedFindings:  []domain.Finding{},
		Recommendations:   []string{"Processing failed. Please try again or upload a different document."},
		Errors:            []string{cause.Error()},
		ProcessingTime:    0,
	}
}
