package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mender_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mender_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mender_llm_requests_total",
		Help: "Total LLM requests",
	}, []string{"role", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mender_llm_request_duration_seconds",
		Help:    "LLM request duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"role"})

	JudgeEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mender_judge_evaluations_total",
		Help: "Judge evaluations by app and outcome",
	}, []string{"app", "status"})

	OptimizationRunsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mender_optimization_runs_active",
		Help: "Number of optimization runs currently executing",
	})

	OptimizationBestScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mender_optimization_best_score",
		Help: "Best candidate score of the latest run per app",
	}, []string{"app"})

	SearchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mender_search_requests_total",
		Help: "Web search requests by outcome",
	}, []string{"status"})

	TrainsetExamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mender_trainset_examples_total",
		Help: "Training examples written, by app",
	}, []string{"app"})
)
