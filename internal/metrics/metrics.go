package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postmuse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "postmuse_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "route"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postmuse_llm_requests_total",
			Help: "Chat completion calls by capability and result",
		},
		[]string{"capability", "result"},
	)

	LLMLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postmuse_llm_latency_seconds",
			Help:    "Chat completion latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"capability"},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postmuse_pipeline_runs_total",
			Help: "Opportunity pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	JudgeCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postmuse_judge_calls_total",
			Help: "Per-topic judge calls by verdict",
		},
		[]string{"verdict"},
	)

	PostsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "postmuse_posts_generated_total",
			Help: "Promotional posts generated",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "postmuse_active_sessions",
			Help: "Cached analysis sessions available for refresh",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
