package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractKeywords(t *testing.T) {
	keys := ExtractKeywords("apple apple banana cherry apple banana date", 10)
	assert.Equal(t, []string{"apple", "banana", "cherry", "date"}, keys)

	keys = ExtractKeywords("apple apple banana cherry apple banana date", 2)
	assert.Equal(t, []string{"apple", "banana"}, keys)
}

func TestExtractKeywordsTieBreaksByFirstSeen(t *testing.T) {
	keys := ExtractKeywords("zebra yak zebra yak", 10)
	assert.Equal(t, []string{"zebra", "yak"}, keys)
}

func TestExtractKeywordsFiltersShortTokens(t *testing.T) {
	assert.Empty(t, ExtractKeywords("go to it at", 10))
	assert.Empty(t, ExtractKeywords("", 10))

	// Hyphens and apostrophes stay inside tokens.
	keys := ExtractKeywords("don't ignore well-known facts", 10)
	assert.Equal(t, []string{"don't", "ignore", "well-known", "facts"}, keys)
}

func TestLCSFMeasure(t *testing.T) {
	assert.InDelta(t, 1.0, lcsFMeasure("a b c d", "a b c d"), 1e-9)
	assert.Zero(t, lcsFMeasure("alpha beta", "gamma delta"))
	assert.Zero(t, lcsFMeasure("", "anything"))
	assert.Zero(t, lcsFMeasure("anything", ""))

	// LCS 2, precision 2/2, recall 2/4, F = 2/3.
	assert.InDelta(t, 2.0/3.0, lcsFMeasure("a b c d", "a c"), 1e-9)
}

func TestCompletenessWorkedExample(t *testing.T) {
	// LCS F-measure 4/6 against the context, full keyword coverage:
	// 0.6*(2/3) + 0.4*1.0 = 0.8.
	got := Completeness(
		"capital France",
		"The capital of France is Paris",
		[]string{"Paris is the capital of France"},
	)
	assert.InDelta(t, 0.8, got, 1e-9)
}

func TestCompletenessEmptyInputs(t *testing.T) {
	assert.Zero(t, Completeness("q", "", []string{"ctx"}))
	assert.Zero(t, Completeness("q", "answer", nil))
}

func TestCompletenessNoUserKeywordsMeansFullCoverage(t *testing.T) {
	// "of is" yields no keywords, so coverage defaults to 1.0 and only the
	// overlap term varies.
	withKeys := Completeness("paris", "unrelated words entirely", []string{"paris is the capital"})
	noKeys := Completeness("of is", "unrelated words entirely", []string{"paris is the capital"})
	assert.Greater(t, noKeys, withKeys)
	assert.InDelta(t, 0.4, noKeys, 1e-9)
}

func TestRelevanceEmptyInputs(t *testing.T) {
	scorer := NewScorer(bowEmbedder{})

	rel, err := scorer.Relevance(context.Background(), "", []string{"ctx"})
	require.NoError(t, err)
	assert.Zero(t, rel)

	rel, err = scorer.Relevance(context.Background(), "answer", nil)
	require.NoError(t, err)
	assert.Zero(t, rel)
}

func TestRelevanceMeanOverContexts(t *testing.T) {
	scorer := NewScorer(bowEmbedder{})

	rel, err := scorer.Relevance(context.Background(), "paris france", []string{"paris france"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rel, 1e-6)

	// One identical, one disjoint context averages to 0.5.
	rel, err = scorer.Relevance(context.Background(), "paris france", []string{
		"paris france",
		"cooking bread flour",
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rel, 1e-6)
}

func TestRelevanceUsesAtMostFiveContexts(t *testing.T) {
	scorer := NewScorer(bowEmbedder{})

	contexts := []string{
		"alpha one", "beta two", "gamma three", "delta four", "epsilon five",
		"matching reply tokens",
	}

	rel, err := scorer.Relevance(context.Background(), "matching reply tokens", contexts)
	require.NoError(t, err)
	assert.Zero(t, rel)
}
