package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Resolution metrics
	ResolutionsTotal    *prometheus.CounterVec
	ResolutionDuration  *prometheus.HistogramVec
	ResolutionFallbacks *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheFlushTotal  prometheus.Counter

	// Store metrics
	StoreQueriesTotal  *prometheus.CounterVec
	StoreQueryDuration *prometheus.HistogramVec
	StoreErrorsTotal   *prometheus.CounterVec

	// Audit metrics
	AuditEventsTotal    *prometheus.CounterVec
	AuditEmitFailsTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strata_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_resolutions_total",
				Help: "Total configuration resolutions by source tier and outcome",
			},
			[]string{"source", "outcome"},
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strata_resolution_duration_seconds",
				Help:    "Configuration resolution duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"source"},
		),
		ResolutionFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_resolution_fallbacks_total",
				Help: "Resolutions that fell past the environment-specific tier",
			},
			[]string{"source"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_cache_hits_total",
				Help: "Cache hits by cache name",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_cache_misses_total",
				Help: "Cache misses by cache name",
			},
			[]string{"cache"},
		),
		CacheFlushTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "strata_cache_flushes_total",
				Help: "Explicit cache flushes",
			},
		),

		StoreQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_store_queries_total",
				Help: "Persistent store queries by operation",
			},
			[]string{"operation"},
		),
		StoreQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strata_store_query_duration_seconds",
				Help:    "Persistent store query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_store_errors_total",
				Help: "Persistent store errors by operation",
			},
			[]string{"operation"},
		),

		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_audit_events_total",
				Help: "Audit events emitted by classification tier",
			},
			[]string{"tier"},
		),
		AuditEmitFailsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "strata_audit_emit_failures_total",
				Help: "Audit events that could not be delivered to a sink",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.ResolutionFallbacks,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheFlushTotal,
		m.StoreQueriesTotal,
		m.StoreQueryDuration,
		m.StoreErrorsTotal,
		m.AuditEventsTotal,
		m.AuditEmitFailsTotal,
	)

	return m
}

// Handler returns an HTTP handler that serves the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordResolution records one configuration resolution
func (m *Metrics) RecordResolution(source string, success bool, duration time.Duration) {
	outcome := "miss"
	if success {
		outcome = "hit"
	}
	m.ResolutionsTotal.WithLabelValues(source, outcome).Inc()
	m.ResolutionDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordStoreQuery records one store query
func (m *Metrics) RecordStoreQuery(operation string, duration time.Duration, err error) {
	m.StoreQueriesTotal.WithLabelValues(operation).Inc()
	m.StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.StoreErrorsTotal.WithLabelValues(operation).Inc()
	}
}

// RecordHTTPRequest records one HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
