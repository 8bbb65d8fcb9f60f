// Package metrics registers the Prometheus collectors for ingestion and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardingest_ingest_total",
			Help: "Ingestion runs by outcome (synced, sync_failed, skipped, ocr_error, store_error).",
		},
		[]string{"outcome"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardingest_stage_duration_seconds",
			Help:    "Duration of each ingestion stage in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	syncAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardingest_sync_attempts_total",
			Help: "CRM delivery attempts by target and result.",
		},
		[]string{"target", "result"},
	)

	ocrCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardingest_ocr_cache_total",
			Help: "OCR cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardingest_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardingest_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordIngest counts one finished ingestion run.
func RecordIngest(outcome string) {
	ingestTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordSyncAttempt counts one CRM delivery attempt.
func RecordSyncAttempt(target string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	syncAttempts.WithLabelValues(target, result).Inc()
}

// RecordOCRCache counts one OCR cache lookup.
func RecordOCRCache(result string) {
	ocrCache.WithLabelValues(result).Inc()
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// unmatchedRoute labels requests that matched no chi route, keeping raw
// paths out of the label set.
const unmatchedRoute = "unmatched"

// Middleware records request counts and latency labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
