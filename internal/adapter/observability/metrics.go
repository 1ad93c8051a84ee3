// Package observability provides logging, metrics, and tracing.
//
// It integrates with Prometheus for metrics collection and
// OpenTelemetry for distributed tracing.
package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	ModelInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_invocations_total",
			Help: "Total number of model invocations by path and outcome",
		},
		[]string{"path", "outcome"},
	)
	ModelInvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_invocation_duration_seconds",
			Help:    "Model invocation duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"path"},
	)

	RepairRoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_repair_rounds_total",
			Help: "Total number of model repair re-prompts issued",
		},
	)
	ExtractionOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_extraction_outcomes_total",
			Help: "How structured records were obtained: direct, repaired, reprompted, empty",
		},
		[]string{"outcome"},
	)

	PersistenceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_persistence_failures_total",
			Help: "Best-effort persistence failures by sink",
		},
		[]string{"sink"},
	)

	// Final score distribution over completed feedback generations.
	TotalScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feedback_total_score",
			Help:    "Distribution of totalScore ([0,30])",
			Buckets: []float64{0, 3, 6, 9, 12, 15, 18, 21, 24, 27, 30},
		},
	)
)

// InitMetrics registers all collectors; call once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(ModelInvocationsTotal)
	prometheus.MustRegister(ModelInvocationDuration)
	prometheus.MustRegister(RepairRoundsTotal)
	prometheus.MustRegister(ExtractionOutcomesTotal)
	prometheus.MustRegister(PersistenceFailuresTotal)
	prometheus.MustRegister(TotalScoreHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveTotalScore records the final score of a completed generation.
func ObserveTotalScore(total int) {
	if total >= 0 && total <= 30 {
		TotalScoreHistogram.Observe(float64(total))
	}
}
