// Package metrics exposes Prometheus collectors for the crawler.
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

// Page outcome labels for ObservePage.
const (
	StatusSuccess  = "success"
	StatusRetry    = "retry"
	StatusFailed   = "failed"
	StatusMismatch = "mismatch"
)

var (
	pagesTotal                 *prometheus.CounterVec
	fetchRetriesTotal          prometheus.Counter
	terminalFailuresTotal      *prometheus.CounterVec
	schoolsTotal               prometheus.Counter
	triplesTotal               prometheus.Counter
	inflightTasks              prometheus.Gauge
	fetchDurationSeconds       prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sekolah_pages_total",
				Help: "Total number of pages processed, labeled by hierarchy level and outcome.",
			},
			[]string{"level", "status"},
		)

		fetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sekolah_fetch_retries_total",
				Help: "Total number of page fetches resubmitted after a failure.",
			},
		)

		terminalFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sekolah_terminal_failures_total",
				Help: "Total number of pages abandoned after exhausting retries, labeled by level.",
			},
			[]string{"level"},
		)

		schoolsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sekolah_schools_total",
				Help: "Total number of school records accepted by the sink.",
			},
		)

		triplesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sekolah_triples_total",
				Help: "Total number of RDF triples written.",
			},
		)

		inflightTasks = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sekolah_inflight_tasks",
				Help: "Number of page descriptors currently being processed.",
			},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sekolah_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
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
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts one processed page.
func ObservePage(level, status string) {
	if pagesTotal == nil {
		return
	}
	pagesTotal.WithLabelValues(level, status).Inc()
}

// ObserveRetry counts a resubmitted fetch.
func ObserveRetry() {
	if fetchRetriesTotal == nil {
		return
	}
	fetchRetriesTotal.Inc()
}

// ObserveTerminalFailure counts a page dropped after its last attempt.
func ObserveTerminalFailure(level string) {
	if terminalFailuresTotal == nil {
		return
	}
	terminalFailuresTotal.WithLabelValues(level).Inc()
}

// ObserveSchool counts an accepted school record and its triples.
func ObserveSchool(triples int) {
	if schoolsTotal == nil {
		return
	}
	schoolsTotal.Inc()
	triplesTotal.Add(float64(triples))
}

// ObserveFetch records the latency of one fetch.
func ObserveFetch(duration time.Duration) {
	if fetchDurationSeconds == nil {
		return
	}
	fetchDurationSeconds.Observe(duration.Seconds())
}

// IncInFlight increments the in-flight gauge.
func IncInFlight() {
	if inflightTasks == nil {
		return
	}
	inflightTasks.Inc()
}

// DecInFlight decrements the in-flight gauge.
func DecInFlight() {
	if inflightTasks == nil {
		return
	}
	inflightTasks.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
