// Package metrics exposes Prometheus collectors for the harvester.
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

// Request outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeRetry   = "retry"
	OutcomeFailed  = "failed"
	OutcomeSaved   = "saved"
	OutcomeSkipped = "skipped"
)

var (
	requestsTotal             *prometheus.CounterVec
	requestDurationSeconds    *prometheus.HistogramVec
	recordsTotal              *prometheus.CounterVec
	normalizedRecordsTotal    *prometheus.CounterVec
	derivedRowsTotal          *prometheus.CounterVec
	activeSources             prometheus.Gauge
	rateLimitDelaySeconds     *prometheus.HistogramVec
	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDurationSecond *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		requestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_requests_total",
				Help: "Portal API request attempts, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		requestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_request_duration_seconds",
				Help:    "Latency of single portal API attempts.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"source"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_records_total",
				Help: "Raw records handed to the store, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		normalizedRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_normalized_records_total",
				Help: "Records processed by the normalizer, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		derivedRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_derived_rows_total",
				Help: "Derived rows written by the normalizer, labeled by entity and outcome.",
			},
			[]string{"entity", "outcome"},
		)

		activeSources = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_active_sources",
				Help: "Number of sources currently being harvested.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_rate_limit_delay_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSecond = promauto.NewHistogramVec(
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

// ObserveRequest records one transport attempt.
func ObserveRequest(source, outcome string, duration time.Duration) {
	Init()
	requestsTotal.WithLabelValues(source, outcome).Inc()
	if duration > 0 {
		requestDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
	}
}

// ObserveRecord counts one raw record write.
func ObserveRecord(source, outcome string) {
	Init()
	recordsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveNormalizedRecord counts one record pass of the normalizer.
func ObserveNormalizedRecord(outcome string) {
	Init()
	normalizedRecordsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDerivedRow counts one derived row insert.
func ObserveDerivedRow(entity, outcome string) {
	Init()
	derivedRowsTotal.WithLabelValues(entity, outcome).Inc()
}

// IncActiveSources increments the active sources gauge.
func IncActiveSources() {
	Init()
	activeSources.Inc()
}

// DecActiveSources decrements the active sources gauge.
func DecActiveSources() {
	Init()
	activeSources.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveHTTPRequest records one request served by the status endpoint.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSecond.WithLabelValues(method, route).Observe(duration.Seconds())
}
