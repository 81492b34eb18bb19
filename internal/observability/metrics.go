package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors the service and workers share.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpErrors     *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	JobsProcessed  *prometheus.CounterVec
	JobsExhausted  prometheus.Counter
	SLABreaches    *prometheus.CounterVec
	WebhookResults *prometheus.CounterVec
	RAGSearches    *prometheus.CounterVec
}

// NewMetrics builds and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atum_http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atum_http_errors_total",
			Help: "HTTP error responses by path, method and error code.",
		}, []string{"path", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atum_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atum_jobs_processed_total",
			Help: "Background jobs by type and outcome.",
		}, []string{"type", "outcome"}),
		JobsExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atum_jobs_retries_exhausted_total",
			Help: "Jobs that reached terminal FAILED after exhausting retries.",
		}),
		SLABreaches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atum_sla_breaches_total",
			Help: "SLA breaches detected by the sweep, by target kind.",
		}, []string{"kind"}),
		WebhookResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atum_webhook_deliveries_total",
			Help: "Webhook delivery attempts by outcome.",
		}, []string{"outcome"}),
		RAGSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atum_rag_searches_total",
			Help: "RAG searches by mode (hybrid or degraded keyword-only).",
		}, []string{"mode"}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpErrors,
		m.httpDuration,
		m.JobsProcessed,
		m.JobsExhausted,
		m.SLABreaches,
		m.WebhookResults,
		m.RAGSearches,
	)
	return m
}

// RecordRequest increments request counters.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(path, method, code).Inc()
}
