package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Evaluations counts gate/config/layer checks by where they were decided (local or remote).
	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdk_evaluations_total",
			Help: "Total evaluations by kind and source",
		},
		[]string{"kind", "source"},
	)
	FallbackErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdk_fallback_errors_total",
			Help: "Remote evaluation calls that failed",
		},
		[]string{"kind"},
	)
	Exposures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdk_exposures_total",
			Help: "Exposure records handed to the log queue",
		},
		[]string{"kind"},
	)
	LogQueueDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sdk_log_queue_dropped_total",
		Help: "Events dropped because the log queue was full or closed",
	})
	LogQueueWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sdk_log_queue_written_total",
		Help: "Events written to the sink",
	})
	RulesetSpecs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ruleset_specs",
		Help: "Number of specs currently in the in-memory ruleset",
	})
)

func Init() {
	prometheus.MustRegister(
		httpReqs, httpDur,
		Evaluations, FallbackErrors, Exposures,
		LogQueueDropped, LogQueueWritten, RulesetSpecs,
	)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// route pattern is only known after routing
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
