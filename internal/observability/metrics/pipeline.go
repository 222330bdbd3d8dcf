package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics covers document processing. All methods are safe on a nil
// receiver so components can run without metrics in tests and the CLI.
type PipelineMetrics struct {
	service  string
	registry *prometheus.Registry

	processTotal       *prometheus.CounterVec
	processDuration    *prometheus.HistogramVec
	processInFlight    prometheus.Gauge
	queueLag           *prometheus.HistogramVec
	classificationTier *prometheus.CounterVec
	summaryTier        *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	breakerOpen        *prometheus.GaugeVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "document_process_total",
			Help:      "Total processed documents by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "document_process_duration_seconds",
			Help:      "Document processing duration in seconds by status.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight document processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "queue_lag_seconds",
			Help:      "Delay between source discovery and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	classificationTier := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintel",
			Name:      "classification_tier_total",
			Help:      "Classification outcomes by the tier that produced them.",
		},
		[]string{"service", "tier"},
	)
	summaryTier := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintel",
			Name:      "summary_tier_total",
			Help:      "Summaries by the tier that produced them.",
		},
		[]string{"service", "tier"},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintel",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Document cache lookups by result.",
		},
		[]string{"service", "result"},
	)
	breakerOpen := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "docintel",
			Name:      "circuit_breaker_open",
			Help:      "1 while the circuit breaker of a remote operation is open.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		processTotal,
		processDuration,
		processInFlight,
		queueLag,
		classificationTier,
		summaryTier,
		cacheLookups,
		breakerOpen,
	)

	return &PipelineMetrics{
		service:            service,
		registry:           registry,
		processTotal:       processTotal,
		processDuration:    processDuration,
		processInFlight:    processInFlight,
		queueLag:           queueLag,
		classificationTier: classificationTier,
		summaryTier:        summaryTier,
		cacheLookups:       cacheLookups,
		breakerOpen:        breakerOpen,
	}
}

func (m *PipelineMetrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartDocument() {
	if m == nil {
		return
	}
	m.processInFlight.Inc()
}

func (m *PipelineMetrics) FinishDocument(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(m.service, status).Inc()
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveQueueLag(lag time.Duration) {
	if m == nil || lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *PipelineMetrics) RecordClassificationTier(tier string) {
	if m == nil {
		return
	}
	m.classificationTier.WithLabelValues(m.service, tier).Inc()
}

func (m *PipelineMetrics) RecordSummaryTier(tier string) {
	if m == nil {
		return
	}
	m.summaryTier.WithLabelValues(m.service, tier).Inc()
}

func (m *PipelineMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(m.service, result).Inc()
}

// SetBreakerState matches resilience.StateListener.
func (m *PipelineMetrics) SetBreakerState(operation string, open bool) {
	if m == nil {
		return
	}
	value := 0.0
	if open {
		value = 1
	}
	m.breakerOpen.WithLabelValues(m.service, operation).Set(value)
}
