package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors only, so /metrics stays small.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notes",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	mediaUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "media",
			Name:      "uploads_total",
			Help:      "Uploads sent to the media host, by backend and result.",
		},
		[]string{"backend", "result"},
	)

	uploadRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "upload",
			Name:      "rejections_total",
			Help:      "Upload requests rejected before or during upload, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	Registry.MustRegister(httpRequests, httpDuration, mediaUploads, uploadRejections)
}

// Handler exposes the application registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordMediaUpload(backend string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	mediaUploads.WithLabelValues(backend, result).Inc()
}

func RecordUploadRejection(reason string) {
	uploadRejections.WithLabelValues(reason).Inc()
}
