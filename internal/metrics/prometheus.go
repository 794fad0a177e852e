package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EvalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chateval_eval_duration_seconds",
			Help:    "Full conversation evaluation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chateval_evaluations_total",
			Help: "Total number of evaluation requests processed",
		},
		[]string{"status"},
	)

	TurnsEvaluated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chateval_turns_evaluated_total",
			Help: "Total number of user-assistant pairs evaluated",
		},
	)

	ClaimsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chateval_claims_extracted_total",
			Help: "Total number of claims extracted from assistant replies",
		},
		[]string{"claim_type"},
	)

	HallucinationRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chateval_hallucination_ratio",
			Help:    "Per-turn hallucination ratio distribution",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	TokensEstimated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chateval_tokens_estimated_total",
			Help: "Total estimated tokens across evaluated turns",
		},
		[]string{"type"},
	)

	EstimatedCost = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chateval_estimated_cost_usd_total",
			Help: "Total estimated LLM cost across evaluated turns in USD",
		},
	)

	EmbeddingCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chateval_embedding_cache_hits_total",
			Help: "Total embedding cache hits",
		},
	)

	EmbeddingCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chateval_embedding_cache_misses_total",
			Help: "Total embedding cache misses",
		},
	)

	ReportsSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chateval_reports_saved_total",
			Help: "Total evaluation reports saved",
		},
		[]string{"status"},
	)
)

func Init() {
	prometheus.MustRegister(EvalDuration)
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(TurnsEvaluated)
	prometheus.MustRegister(ClaimsExtracted)
	prometheus.MustRegister(HallucinationRatio)
	prometheus.MustRegister(TokensEstimated)
	prometheus.MustRegister(EstimatedCost)
	prometheus.MustRegister(EmbeddingCacheHits)
	prometheus.MustRegister(EmbeddingCacheMisses)
	prometheus.MustRegister(ReportsSaved)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
