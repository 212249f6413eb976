// Package metrics provides Prometheus metrics for the resolver and its HTTP endpoint.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gofile_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gofile_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Session metrics
	tokenFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gofile_token_fetches_total",
			Help: "Credential fetches by kind (api, wt) and result",
		},
		[]string{"kind", "result"},
	)

	// Provider metrics
	providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gofile_provider_request_duration_seconds",
			Help:    "Provider API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gofile_provider_requests_total",
			Help: "Total provider API calls",
		},
		[]string{"endpoint", "status"},
	)

	// Resolver metrics
	nodesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gofile_nodes_fetched_total",
			Help: "Content nodes fetched, by node type",
		},
		[]string{"type"},
	)

	filesExcludedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gofile_files_excluded_total",
			Help: "Files skipped by an exclusion pattern",
		},
	)

	nodeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gofile_node_failures_total",
			Help: "Non-fatal per-node failures (password, provider, timeout)",
		},
		[]string{"kind"},
	)

	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gofile_resolutions_total",
			Help: "Completed resolutions by result",
		},
		[]string{"result"},
	)

	resolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gofile_resolution_duration_seconds",
			Help:    "Time to resolve a share into file descriptors",
			Buckets: prometheus.DefBuckets,
		},
	)

	resolvedFiles = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gofile_resolved_files",
			Help:    "Number of descriptors produced per resolution",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// Manifest metrics
	manifestWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gofile_manifest_writes_total",
			Help: "Manifest writes by backend and status",
		},
		[]string{"backend", "status"},
	)

	rateLimitHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gofile_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTokenFetch records a credential fetch ("api" or "wt").
func RecordTokenFetch(kind string, success bool) {
	tokenFetchesTotal.WithLabelValues(kind, statusLabel(success)).Inc()
}

// RecordProviderRequest records one provider API call.
func RecordProviderRequest(endpoint string, duration time.Duration, success bool) {
	providerRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	providerRequestsTotal.WithLabelValues(endpoint, statusLabel(success)).Inc()
}

// RecordNodeFetched records a decoded content node ("file" or "folder").
func RecordNodeFetched(nodeType string) {
	nodesFetchedTotal.WithLabelValues(nodeType).Inc()
}

// RecordFileExcluded records a file dropped by an exclusion pattern.
func RecordFileExcluded() {
	filesExcludedTotal.Inc()
}

// RecordNodeFailure records a non-fatal node failure.
func RecordNodeFailure(kind string) {
	nodeFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordResolution records a finished resolution.
func RecordResolution(duration time.Duration, files int, success bool) {
	resolutionsTotal.WithLabelValues(statusLabel(success)).Inc()
	resolutionDuration.Observe(duration.Seconds())
	if success {
		resolvedFiles.Observe(float64(files))
	}
}

// RecordManifestWrite records a manifest write.
func RecordManifestWrite(backend string, success bool) {
	manifestWritesTotal.WithLabelValues(backend, statusLabel(success)).Inc()
}

// RecordRateLimitHit records a rejected request.
func RecordRateLimitHit() {
	rateLimitHitsTotal.Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}
