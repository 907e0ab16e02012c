package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fern_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fern_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	pushChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fern_sync_push_changes_total",
		Help: "Pushed changes by outcome (accepted, failed, conflict).",
	}, []string{"outcome"})

	pullItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fern_sync_pull_items_total",
		Help: "Entities returned by pull responses.",
	})
)

// MetricsMiddleware records request counts and latency per chi route
// pattern. The pattern keeps label cardinality bounded; raw paths would
// blow it up with IDs.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// observePush feeds push outcome counters from a completed batch.
func observePush(accepted, failed, conflicts int) {
	pushChangesTotal.WithLabelValues("accepted").Add(float64(accepted))
	pushChangesTotal.WithLabelValues("failed").Add(float64(failed))
	pushChangesTotal.WithLabelValues("conflict").Add(float64(conflicts))
}
