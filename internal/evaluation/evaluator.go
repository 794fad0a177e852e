package evaluation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/chateval/backend/internal/metrics"
	"github.com/chateval/backend/internal/parser"
	"github.com/chateval/backend/pkg/logger"
)

const (
	userPreviewChars = 400
	aiPreviewChars   = 600
)

type Options struct {
	SupportThreshold float64
	TopK             int
	Pricing          Pricing
}

func DefaultOptions() Options {
	return Options{
		SupportThreshold: 0.28,
		TopK:             5,
		Pricing:          DefaultPricing(),
	}
}

type ManualReviewItem struct {
	Claim              string          `json:"claim"`
	ClaimType          string          `json:"claim_type"`
	EvidenceConfidence string          `json:"evidence_confidence"`
	BestSupportScore   float64         `json:"best_support_score"`
	TopEvidence        []EvidenceMatch `json:"top_evidence"`
	PairIndex          int             `json:"pair_index"`
}

type TokenEstimates struct {
	InputTokensAllContexts int `json:"input_tokens_all_contexts"`
	OutputTokens           int `json:"output_tokens"`
}

type TokenEstimatesTopK struct {
	InputTokensTopK int `json:"input_tokens_topk"`
}

type TurnReport struct {
	PairIndex            int                    `json:"pair_index"`
	UserTextPreview      string                 `json:"user_text_preview"`
	AITextPreview        string                 `json:"ai_text_preview"`
	Relevance            float64                `json:"relevance"`
	Completeness         float64                `json:"completeness"`
	Hallucination        HallucinationReport    `json:"hallucination"`
	LatencySeconds       float64                `json:"latency_seconds"`
	TokenEstimates       TokenEstimates         `json:"token_estimates"`
	TokenEstimatesTopK   TokenEstimatesTopK     `json:"token_estimates_topk"`
	EstimatedCostUSD     float64                `json:"estimated_cost_usd"`
	EstimatedCostUSDTopK float64                `json:"estimated_cost_usd_topk"`
	AIMeta               map[string]interface{} `json:"ai_meta"`
	RequiresManualReview []ManualReviewItem     `json:"requires_manual_review"`
}

type Aggregates struct {
	NumTurns               int     `json:"num_turns"`
	MeanRelevance          float64 `json:"mean_relevance"`
	MeanCompleteness       float64 `json:"mean_completeness"`
	MeanHallucinationRatio float64 `json:"mean_hallucination_ratio"`
	TotalInputTokens       int     `json:"total_input_tokens"`
	TotalOutputTokens      int     `json:"total_output_tokens"`
	TotalEstimatedCostUSD  float64 `json:"total_estimated_cost_usd"`
}

// Evaluator orchestrates the per-turn pipeline: relevance, completeness,
// hallucination detection, latency and cost estimation.
type Evaluator struct {
	scorer *Scorer
}

func NewEvaluator(scorer *Scorer) *Evaluator {
	return &Evaluator{scorer: scorer}
}

func (e *Evaluator) EvaluateTurn(ctx context.Context, pair parser.TurnPair, items []parser.ContextItem, opts Options) (TurnReport, error) {
	logger.Debug("Evaluating pair",
		zap.Int("pair_index", pair.PairIndex),
		zap.Int("context_items", len(items)),
	)

	contextTexts := make([]string, 0, len(items))
	for _, item := range items {
		contextTexts = append(contextTexts, item.Text)
	}

	relevance, err := e.scorer.Relevance(ctx, pair.AIText, contextTexts)
	if err != nil {
		return TurnReport{}, err
	}

	completeness := Completeness(pair.UserText, pair.AIText, contextTexts)

	hallucination, err := e.scorer.BuildHallucinationReport(ctx, pair.AIText, items, opts.SupportThreshold)
	if err != nil {
		return TurnReport{}, err
	}

	latency := EstimateLatency(pair.AIMeta)

	costFull := EstimateCost(pair.UserText, contextTexts, pair.AIText, opts.Pricing)

	topK := opts.TopK
	if topK < 0 {
		topK = 0
	}
	if topK > len(contextTexts) {
		topK = len(contextTexts)
	}
	costTopK := EstimateCost(pair.UserText, contextTexts[:topK], pair.AIText, opts.Pricing)

	manualReview := make([]ManualReviewItem, 0)
	for _, claim := range hallucination.Claims {
		if claim.EvidenceConfidence != ConfidenceWeak && claim.EvidenceConfidence != ConfidenceMedium {
			continue
		}
		topEvidence := claim.Evidence
		if len(topEvidence) > 1 {
			topEvidence = topEvidence[:1]
		}
		manualReview = append(manualReview, ManualReviewItem{
			Claim:              claim.Claim,
			ClaimType:          claim.ClaimType,
			EvidenceConfidence: claim.EvidenceConfidence,
			BestSupportScore:   claim.BestSupportScore,
			TopEvidence:        topEvidence,
			PairIndex:          pair.PairIndex,
		})
	}

	metrics.TurnsEvaluated.Inc()
	metrics.HallucinationRatio.Observe(hallucination.HallucinationRatio)
	for _, claim := range hallucination.Claims {
		metrics.ClaimsExtracted.WithLabelValues(claim.ClaimType).Inc()
	}
	metrics.TokensEstimated.WithLabelValues("input").Add(float64(costFull.InputTokens))
	metrics.TokensEstimated.WithLabelValues("output").Add(float64(costFull.OutputTokens))
	metrics.EstimatedCost.Add(costFull.EstimatedCostUSD)

	return TurnReport{
		PairIndex:       pair.PairIndex,
		UserTextPreview: preview(pair.UserText, userPreviewChars),
		AITextPreview:   preview(pair.AIText, aiPreviewChars),
		Relevance:       relevance,
		Completeness:    completeness,
		Hallucination:   hallucination,
		LatencySeconds:  latency,
		TokenEstimates: TokenEstimates{
			InputTokensAllContexts: costFull.InputTokens,
			OutputTokens:           costFull.OutputTokens,
		},
		TokenEstimatesTopK: TokenEstimatesTopK{
			InputTokensTopK: costTopK.InputTokens,
		},
		EstimatedCostUSD:     costFull.EstimatedCostUSD,
		EstimatedCostUSDTopK: costTopK.EstimatedCostUSD,
		AIMeta:               pair.AIMeta,
		RequiresManualReview: manualReview,
	}, nil
}

// Aggregate reduces per-turn reports into conversation-level statistics.
// All means default to 0.0 when there are no turns.
func Aggregate(reports []TurnReport) Aggregates {
	n := len(reports)
	if n == 0 {
		return Aggregates{}
	}

	agg := Aggregates{NumTurns: n}
	for _, report := range reports {
		agg.MeanRelevance += report.Relevance
		agg.MeanCompleteness += report.Completeness
		agg.MeanHallucinationRatio += report.Hallucination.HallucinationRatio
		agg.TotalInputTokens += report.TokenEstimates.InputTokensAllContexts
		agg.TotalOutputTokens += report.TokenEstimates.OutputTokens
		agg.TotalEstimatedCostUSD += report.EstimatedCostUSD
	}

	agg.MeanRelevance /= float64(n)
	agg.MeanCompleteness /= float64(n)
	agg.MeanHallucinationRatio /= float64(n)

	return agg
}

func preview(text string, limit int) string {
	return truncateRunes(strings.ReplaceAll(text, "\n", " "), limit)
}
