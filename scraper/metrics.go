package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetcher.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	ErrorsTotal     *prometheus.CounterVec
	RetriesTotal    prometheus.Counter
	CacheTotal      *prometheus.CounterVec
	LimiterWait     prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_requests_total",
			Help: "Total HTTP requests issued to the statistics site.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_request_duration_seconds",
			Help:    "HTTP request latency for page fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_fetch_errors_total",
			Help: "Total fetch failures by classification.",
		},
		[]string{"error_type"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_retries_total",
			Help: "Total retry attempts for transient network failures.",
		},
	)
	cacheTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_page_cache_total",
			Help: "Page cache lookups by outcome.",
		},
		[]string{"outcome"},
	)
	limiterWait := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_limiter_wait_seconds",
			Help:    "Time spent waiting on the courtesy rate gate.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(requests, requestDuration, errorsTotal, retries, cacheTotal, limiterWait)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		ErrorsTotal:     errorsTotal,
		RetriesTotal:    retries,
		CacheTotal:      cacheTotal,
		LimiterWait:     limiterWait,
	}
}

// IncRequest increments the requests counter for a pipeline phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncError increments the errors counter for a classification label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncCache records a cache lookup outcome ("hit" or "miss").
func (m *Metrics) IncCache(outcome string) {
	if m == nil {
		return
	}
	m.CacheTotal.WithLabelValues(outcome).Inc()
}

// ObserveLimiterWait records time spent blocked on the rate gate.
func (m *Metrics) ObserveLimiterWait(d time.Duration) {
	if m == nil {
		return
	}
	m.LimiterWait.Observe(d.Seconds())
}
