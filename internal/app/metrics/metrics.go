// Package metrics exposes Prometheus collectors for the HTTP surface, the
// credential vault, and drive transfers.
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
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "document_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "document_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "document_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	vaultOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "document_layer",
			Subsystem: "vault",
			Name:      "operations_total",
			Help:      "Total number of credential vault operations.",
		},
		[]string{"operation", "outcome"},
	)

	driveTransfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "document_layer",
			Subsystem: "drive",
			Name:      "transfers_total",
			Help:      "Total number of drive content transfers.",
		},
		[]string{"direction", "outcome"},
	)

	driveTransferBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "document_layer",
			Subsystem: "drive",
			Name:      "transfer_bytes_total",
			Help:      "Total bytes streamed to and from the drive provider.",
		},
		[]string{"direction"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		vaultOperations,
		driveTransfers,
		driveTransferBytes,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordVaultOperation records the outcome of a credential vault operation.
func RecordVaultOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	vaultOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordDriveTransfer records one content transfer to or from the provider.
func RecordDriveTransfer(direction string, bytes int64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	driveTransfers.WithLabelValues(direction, outcome).Inc()
	if bytes > 0 {
		driveTransferBytes.WithLabelValues(direction).Add(float64(bytes))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource IDs so metric cardinality stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "auth", "drive":
		if len(parts) > 2 {
			return "/" + parts[0] + "/" + parts[1]
		}
		return "/" + strings.Join(parts, "/")
	case "users", "files", "comments", "tenants":
		if len(parts) == 1 {
			return "/" + parts[0]
		}
		result := "/" + parts[0] + "/:id"
		if len(parts) > 2 {
			result += "/" + parts[2]
		}
		return result
	default:
		return "/" + parts[0]
	}
}
