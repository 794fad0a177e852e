package evaluation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chateval/backend/internal/parser"
)

func TestAggregateNoTurns(t *testing.T) {
	agg := Aggregate(nil)
	assert.Zero(t, agg.NumTurns)
	assert.Zero(t, agg.MeanRelevance)
	assert.Zero(t, agg.MeanCompleteness)
	assert.Zero(t, agg.MeanHallucinationRatio)
	assert.Zero(t, agg.TotalEstimatedCostUSD)
}

func TestAggregateMeansAndTotals(t *testing.T) {
	reports := []TurnReport{
		{
			Relevance:        0.8,
			Completeness:     0.6,
			Hallucination:    HallucinationReport{HallucinationRatio: 0.0},
			TokenEstimates:   TokenEstimates{InputTokensAllContexts: 100, OutputTokens: 40},
			EstimatedCostUSD: 0.01,
		},
		{
			Relevance:        0.4,
			Completeness:     0.2,
			Hallucination:    HallucinationReport{HallucinationRatio: 0.5},
			TokenEstimates:   TokenEstimates{InputTokensAllContexts: 50, OutputTokens: 10},
			EstimatedCostUSD: 0.03,
		},
	}

	agg := Aggregate(reports)
	assert.Equal(t, 2, agg.NumTurns)
	assert.InDelta(t, 0.6, agg.MeanRelevance, 1e-9)
	assert.InDelta(t, 0.4, agg.MeanCompleteness, 1e-9)
	assert.InDelta(t, 0.25, agg.MeanHallucinationRatio, 1e-9)
	assert.Equal(t, 150, agg.TotalInputTokens)
	assert.Equal(t, 50, agg.TotalOutputTokens)
	assert.InDelta(t, 0.04, agg.TotalEstimatedCostUSD, 1e-9)
}

func TestEvaluateTurn(t *testing.T) {
	evaluator := NewEvaluator(NewScorer(bowEmbedder{}))

	pair := parser.TurnPair{
		PairIndex: 1,
		UserText:  "What is the capital of France?",
		AIText:    "The capital of France is Paris. It has about 2.1 million people.",
		AIMeta:    map[string]interface{}{"latency_seconds": 0.2},
	}
	items := []parser.ContextItem{
		{ID: "w", Text: "Paris is the capital of France.", Source: "wiki"},
	}

	report, err := evaluator.EvaluateTurn(context.Background(), pair, items, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, report.PairIndex)
	assert.Greater(t, report.Relevance, 0.0)
	assert.Greater(t, report.Completeness, 0.0)
	assert.InDelta(t, 0.5, report.Hallucination.HallucinationRatio, 1e-9)
	assert.InDelta(t, 0.2, report.LatencySeconds, 1e-9)

	// One context item means the top-k prompt equals the full prompt.
	assert.Equal(t, report.TokenEstimates.InputTokensAllContexts, report.TokenEstimatesTopK.InputTokensTopK)
	assert.InDelta(t, report.EstimatedCostUSD, report.EstimatedCostUSDTopK, 1e-12)
	assert.Greater(t, report.TokenEstimates.OutputTokens, 0)

	// Only the unsupported numeric claim lands in manual review, with at
	// most one evidence match attached.
	require.Len(t, report.RequiresManualReview, 1)
	review := report.RequiresManualReview[0]
	assert.Equal(t, ClaimTypeNumeric, review.ClaimType)
	assert.Equal(t, 1, review.PairIndex)
	assert.LessOrEqual(t, len(review.TopEvidence), 1)
}

func TestEvaluateTurnTopKClampedToContextCount(t *testing.T) {
	evaluator := NewEvaluator(NewScorer(bowEmbedder{}))

	pair := parser.TurnPair{PairIndex: 1, UserText: "q", AIText: "Paris is nice."}
	items := []parser.ContextItem{
		{ID: "1", Text: "paris is nice"},
		{ID: "2", Text: "more paris text"},
	}

	opts := DefaultOptions()
	opts.TopK = 50

	report, err := evaluator.EvaluateTurn(context.Background(), pair, items, opts)
	require.NoError(t, err)
	assert.Equal(t, report.TokenEstimates.InputTokensAllContexts, report.TokenEstimatesTopK.InputTokensTopK)
}

func TestEvaluateTurnNonPositiveTopK(t *testing.T) {
	evaluator := NewEvaluator(NewScorer(bowEmbedder{}))

	pair := parser.TurnPair{PairIndex: 1, UserText: "q", AIText: "Paris is nice."}
	items := []parser.ContextItem{{ID: "1", Text: "paris is nice"}}

	for _, topK := range []int{0, -1, -100} {
		opts := DefaultOptions()
		opts.TopK = topK

		report, err := evaluator.EvaluateTurn(context.Background(), pair, items, opts)
		require.NoError(t, err, "top_k %d", topK)

		// The top-k prompt degrades to the user text alone.
		want := EstimateCost(pair.UserText, nil, pair.AIText, opts.Pricing)
		assert.Equal(t, want.InputTokens, report.TokenEstimatesTopK.InputTokensTopK, "top_k %d", topK)
	}
}

func TestEvaluateTurnPreviews(t *testing.T) {
	evaluator := NewEvaluator(NewScorer(bowEmbedder{}))

	pair := parser.TurnPair{
		PairIndex: 1,
		UserText:  "line one\nline two",
		AIText:    strings.Repeat("Paris is the capital. ", 50),
	}
	items := []parser.ContextItem{{ID: "1", Text: "paris is the capital"}}

	report, err := evaluator.EvaluateTurn(context.Background(), pair, items, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "line one line two", report.UserTextPreview)
	assert.NotContains(t, report.AITextPreview, "\n")
	assert.LessOrEqual(t, len([]rune(report.AITextPreview)), 600)
}

func TestEvaluateTurnEmptyReply(t *testing.T) {
	evaluator := NewEvaluator(NewScorer(bowEmbedder{}))

	pair := parser.TurnPair{PairIndex: 1, UserText: "question"}
	items := []parser.ContextItem{{ID: "1", Text: "context"}}

	report, err := evaluator.EvaluateTurn(context.Background(), pair, items, DefaultOptions())
	require.NoError(t, err)

	assert.Zero(t, report.Relevance)
	assert.Zero(t, report.Completeness)
	assert.Zero(t, report.Hallucination.NumClaims)
	assert.Empty(t, report.RequiresManualReview)
}
