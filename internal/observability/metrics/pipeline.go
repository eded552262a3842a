package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/forgesight/forgesight/internal/core/domain"
)

// PipelineMetrics observes the fusion engine. It satisfies the engine's
// observer contract and registers into a shared registry.
type PipelineMetrics struct {
	service string

	signalDuration  *prometheus.HistogramVec
	verdictTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	cacheHitsTotal  *prometheus.CounterVec
}

func NewPipelineMetrics(service string, registry *prometheus.Registry) *PipelineMetrics {
	signalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "forgesight",
			Subsystem: "pipeline",
			Name:      "signal_duration_seconds",
			Help:      "Per-signal analysis duration in seconds by outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"service", "signal", "status"},
	)
	verdictTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forgesight",
			Subsystem: "pipeline",
			Name:      "verdicts_total",
			Help:      "Total fused verdicts by classification.",
		},
		[]string{"service", "verdict"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "forgesight",
			Subsystem: "pipeline",
			Name:      "process_duration_seconds",
			Help:      "End-to-end document analysis duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 20, 30},
		},
		[]string{"service"},
	)
	cacheHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forgesight",
			Subsystem: "pipeline",
			Name:      "cache_hits_total",
			Help:      "Total analysis requests served from the result cache.",
		},
		[]string{"service"},
	)

	registry.MustRegister(signalDuration, verdictTotal, processDuration, cacheHitsTotal)

	return &PipelineMetrics{
		service:         service,
		signalDuration:  signalDuration,
		verdictTotal:    verdictTotal,
		processDuration: processDuration,
		cacheHitsTotal:  cacheHitsTotal,
	}
}

func (m *PipelineMetrics) ObserveSignal(name domain.SignalName, status domain.SignalStatus, d time.Duration) {
	m.signalDuration.WithLabelValues(m.service, string(name), string(status)).Observe(d.Seconds())
}

func (m *PipelineMetrics) ObserveVerdict(verdict domain.Verdict) {
	m.verdictTotal.WithLabelValues(m.service, string(verdict)).Inc()
}

func (m *PipelineMetrics) ObserveProcess(d time.Duration) {
	m.processDuration.WithLabelValues(m.service).Observe(d.Seconds())
}

func (m *PipelineMetrics) ObserveCacheHit() {
	m.cacheHitsTotal.WithLabelValues(m.service).Inc()
}
