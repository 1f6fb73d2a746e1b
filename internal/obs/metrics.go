package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Audit pipeline metrics. The recorder is fire-and-forget, so drops and
// persistence failures are only visible here and in the logs.
var (
	auditQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audit_queue_depth",
		Help: "Events waiting in the audit queue.",
	})

	auditEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_enqueued_total",
		Help: "Audit events accepted into the queue.",
	})

	auditDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_dropped_total",
		Help: "Audit events dropped because the queue was full or closed.",
	})

	auditPersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_persist_failures_total",
		Help: "Audit events that failed to persist.",
	})
)

// Init registers metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		auditQueueDepth, auditEnqueuedTotal, auditDroppedTotal, auditPersistFailures,
	)
}

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AuditEnqueued counts an accepted audit event.
func AuditEnqueued() { auditEnqueuedTotal.Inc() }

// AuditDropped counts a dropped audit event.
func AuditDropped() { auditDroppedTotal.Inc() }

// AuditPersistFailed counts a failed audit append.
func AuditPersistFailed() { auditPersistFailures.Inc() }

// SetAuditQueueDepth records the current audit queue backlog.
func SetAuditQueueDepth(n int) { auditQueueDepth.Set(float64(n)) }

// CanonicalPath collapses per-entity path segments so metric labels stay
// low-cardinality: /v1/users/42 and /v1/users/42/manager both label as
// /v1/users/:id...; query strings are stripped.
func CanonicalPath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	// /v1/users/{id}[/manager|/roles[/...]]
	if len(parts) >= 4 && parts[1] == "v1" && (parts[2] == "users" || parts[2] == "companies") && parts[3] != "" {
		parts[3] = ":id"
		if len(parts) > 5 {
			parts = append(parts[:5], ":name")
		}
		return strings.Join(parts, "/")
	}
	return path
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for labeling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
