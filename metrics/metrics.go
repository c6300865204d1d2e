// Package metrics содержит Prometheus-метрики сервиса.
//
// Все метрики регистрируются через promauto в prometheus.DefaultRegisterer
// и отдаются на GET /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inmatch"

// StatusTransitions counts match status changes; trigger is "admin" or "kickoff".
var StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "match_status_transitions_total",
	Help:      "Match status transitions by source status, target status and trigger.",
}, []string{"from", "to", "trigger"})

// MatchesDeleted counts removed matches; reason is "admin", "retention" or "timer".
var MatchesDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "matches_deleted_total",
	Help:      "Deleted matches by reason.",
}, []string{"reason"})

var VideoUploads = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "video_uploads_total",
	Help:      "Video uploads to object storage by result.",
}, []string{"result"})

var UploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "video_upload_duration_seconds",
	Help:      "Time spent uploading a single video to object storage.",
	Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
})

var StorageDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "storage_deletes_total",
	Help:      "Object storage deletions by result.",
}, []string{"result"})

// OrphanVideosRemoved counts sweep removals; reason is "unreferenced" or "missing_object".
var OrphanVideosRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "orphan_videos_removed_total",
	Help:      "Videos removed by the periodic sweep.",
}, []string{"reason"})

var WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "websocket_connections",
	Help:      "Currently connected websocket clients.",
})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "http_requests_total",
	Help:      "Total HTTP requests handled.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request latency in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency labelled by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := routePattern(r)
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer (websocket hijack).
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
