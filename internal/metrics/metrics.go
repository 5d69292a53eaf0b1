package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kessler_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kessler_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	propagationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kessler_propagation_duration_seconds",
			Help:    "Duration of a single trajectory propagation.",
			Buckets: prometheus.DefBuckets,
		},
	)

	propagationStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kessler_propagation_steps_total",
			Help: "Propagation steps by outcome.",
		},
		[]string{"result"},
	)

	correctionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kessler_correction_requests_total",
			Help: "Trajectory refinement requests by provenance of the result.",
		},
		[]string{"source"},
	)

	rankDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kessler_rank_duration_seconds",
			Help:    "Duration of conjunction ranking across all targets.",
			Buckets: prometheus.DefBuckets,
		},
	)

	tleDatasetSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kessler_tle_dataset_size",
			Help: "Element sets in the current dataset.",
		},
	)

	tleDatasetAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kessler_tle_dataset_age_seconds",
			Help: "Age of the current element-set dataset in seconds.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(propagationDurationSeconds)
	prometheus.MustRegister(propagationStepsTotal)
	prometheus.MustRegister(correctionRequestsTotal)
	prometheus.MustRegister(rankDurationSeconds)
	prometheus.MustRegister(tleDatasetSize)
	prometheus.MustRegister(tleDatasetAgeSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPropagation records one trajectory propagation: wall time, steps
// that produced a state vector, and steps omitted on failure.
func RecordPropagation(duration time.Duration, steps, omitted int) {
	propagationDurationSeconds.Observe(duration.Seconds())
	propagationStepsTotal.WithLabelValues("ok").Add(float64(steps))
	propagationStepsTotal.WithLabelValues("omitted").Add(float64(omitted))
}

// RecordCorrection records a refinement request and the provenance of
// its result ("model" or "baseline").
func RecordCorrection(source string) {
	correctionRequestsTotal.WithLabelValues(source).Inc()
}

// RecordRank records one ranking pass across conjunction targets.
func RecordRank(duration time.Duration) {
	rankDurationSeconds.Observe(duration.Seconds())
}

// SetTLEDatasetSize updates the element-set count gauge.
func SetTLEDatasetSize(n int) {
	tleDatasetSize.Set(float64(n))
}

// SetTLEDatasetAge updates the dataset age gauge.
func SetTLEDatasetAge(seconds float64) {
	tleDatasetAgeSeconds.Set(seconds)
}

// knownRoutes are the exact paths served by the API. Anything else is
// collapsed to "other" so scanners cannot inflate label cardinality.
var knownRoutes = map[string]bool{
	"/healthz":          true,
	"/readyz":           true,
	"/metrics":          true,
	"/api/v1/catalog":   true,
	"/api/v1/propagate": true,
	"/api/v1/predict":   true,
	"/api/v1/risk":      true,
	"/api/v1/assess":    true,
	"/api/v1/fleet":     true,
}

// normalizeRoute maps a request path to a bounded metric label.
// Parameterized TLE lookups collapse to a single label.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/tle/") {
		return "/api/v1/tle/{norad_id}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)

		route := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
