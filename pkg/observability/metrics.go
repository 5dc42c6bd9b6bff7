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

	// Pipeline metrics
	PipelineRunsTotal     *prometheus.CounterVec
	PipelineStageDuration *prometheus.HistogramVec
	PipelineItemsApplied  prometheus.Counter
	PipelineItemsSkipped  prometheus.Counter
	PipelineLastRunTime   prometheus.Gauge

	// Popularity view metrics
	ViewRebuildsTotal *prometheus.CounterVec
	ViewSize          prometheus.Gauge

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cipherhub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		PipelineRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherhub_pipeline_runs_total",
				Help: "Total number of aggregation pipeline runs",
			},
			[]string{"status"},
		),
		PipelineStageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cipherhub_pipeline_stage_duration_seconds",
				Help:    "Aggregation pipeline stage duration in seconds",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		PipelineItemsApplied: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cipherhub_pipeline_items_applied_total",
				Help: "Total number of cipher counter increments applied",
			},
		),
		PipelineItemsSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cipherhub_pipeline_items_skipped_total",
				Help: "Total number of increments skipped for missing ciphers",
			},
		),
		PipelineLastRunTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cipherhub_pipeline_last_run_timestamp_seconds",
				Help: "Unix timestamp of the last completed pipeline run",
			},
		),
		ViewRebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherhub_popularity_rebuilds_total",
				Help: "Total number of popularity view rebuilds",
			},
			[]string{"status"},
		),
		ViewSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cipherhub_popularity_view_size",
				Help: "Number of ciphers in the current popularity view",
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherhub_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherhub_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PipelineRunsTotal,
		m.PipelineStageDuration,
		m.PipelineItemsApplied,
		m.PipelineItemsSkipped,
		m.PipelineLastRunTime,
		m.ViewRebuildsTotal,
		m.ViewSize,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
