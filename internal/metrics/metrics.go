// Package metrics exposes Prometheus collectors for the forager service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestRecordsTotal         *prometheus.CounterVec
	ingestErrorsTotal          *prometheus.CounterVec
	ingestDurationSeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	httpRetriesTotal           *prometheus.CounterVec
	searchRequestsTotal        *prometheus.CounterVec
	auditProbesTotal           *prometheus.CounterVec
	deadLinksTotal             prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forager_ingest_records_total",
				Help: "Total number of records processed, labeled by source and status.",
			},
			[]string{"source", "status"},
		)

		ingestErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forager_ingest_errors_total",
				Help: "Total number of records that failed normalization or storage, labeled by source.",
			},
			[]string{"source"},
		)

		ingestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forager_ingest_duration_seconds",
				Help:    "Histogram of per-source ingest run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"source"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		httpRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forager_http_retries_total",
				Help: "Total number of outbound request retries, labeled by reason.",
			},
			[]string{"reason"},
		)

		searchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forager_search_requests_total",
				Help: "Total number of retrieval requests, labeled by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		)

		auditProbesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forager_audit_probes_total",
				Help: "Total number of dead-link probes, labeled by verdict.",
			},
			[]string{"verdict"},
		)

		deadLinksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "forager_dead_links_total",
				Help: "Total number of entries marked dead by the auditor.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveIngestRecord increments the per-source record counter.
func ObserveIngestRecord(source, status string) {
	ingestRecordsTotal.WithLabelValues(source, status).Inc()
}

// ObserveIngestError increments the per-source error counter.
func ObserveIngestError(source string) {
	ingestErrorsTotal.WithLabelValues(source).Inc()
}

// ObserveIngestRun records the duration of one source's ingest run.
func ObserveIngestRun(source string, duration time.Duration) {
	ingestDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveHTTPRetry increments the outbound retry counter.
func ObserveHTTPRetry(reason string) {
	httpRetriesTotal.WithLabelValues(reason).Inc()
}

// ObserveSearch increments the retrieval request counter.
func ObserveSearch(mode, outcome string) {
	searchRequestsTotal.WithLabelValues(mode, outcome).Inc()
}

// ObserveAuditProbe increments the probe counter for the given verdict.
func ObserveAuditProbe(verdict string) {
	auditProbesTotal.WithLabelValues(verdict).Inc()
}

// ObserveDeadLink increments the dead-link counter.
func ObserveDeadLink() {
	deadLinksTotal.Inc()
}
