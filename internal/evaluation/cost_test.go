package evaluation

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApproxTokenCount(t *testing.T) {
	assert.Equal(t, 0, ApproxTokenCount(""))
	assert.Equal(t, 1, ApproxTokenCount("abc"))
	assert.Equal(t, 2, ApproxTokenCount("abcdefgh"))

	// Runes, not bytes.
	assert.Equal(t, 1, ApproxTokenCount("ééééééé"))
}

func TestEstimateCost(t *testing.T) {
	est := EstimateCost("aaaa", []string{"bbbb"}, "cccccccc", DefaultPricing())

	// Input "aaaa\nbbbb" is 9 chars, output is 8 chars.
	assert.Equal(t, 2, est.InputTokens)
	assert.Equal(t, 2, est.OutputTokens)
	assert.InDelta(t, 0.00018, est.EstimatedCostUSD, 1e-12)
}

func TestEstimateCostUsesAtMostFiveContexts(t *testing.T) {
	contexts := make([]string, 6)
	for i := range contexts {
		contexts[i] = "bbbb"
	}

	est := EstimateCost("aaaa", contexts, "x", DefaultPricing())

	// "aaaa\n" plus five joined "bbbb" snippets is 29 chars.
	assert.Equal(t, 7, est.InputTokens)
}

func TestEstimateCostEmptyInputs(t *testing.T) {
	est := EstimateCost("", nil, "", Pricing{InputPer1KTokensUSD: 1, OutputPer1KTokensUSD: 1})

	// The joined input is a lone newline, still one token.
	assert.Equal(t, 1, est.InputTokens)
	assert.Equal(t, 0, est.OutputTokens)
}

func TestEstimateLatencyFromMeta(t *testing.T) {
	assert.Zero(t, EstimateLatency(nil))
	assert.Zero(t, EstimateLatency(map[string]interface{}{}))

	assert.InDelta(t, 1.5, EstimateLatency(map[string]interface{}{"latency_seconds": 1.5}), 1e-9)
	assert.InDelta(t, 2.5, EstimateLatency(map[string]interface{}{"response_time": "2.5"}), 1e-9)
	assert.InDelta(t, 3.0, EstimateLatency(map[string]interface{}{"response_time_seconds": 3}), 1e-9)
}

func TestEstimateLatencyMeasuresWithoutHint(t *testing.T) {
	latency := EstimateLatency(map[string]interface{}{"model": "x"})
	assert.Greater(t, latency, 0.009)
	assert.Less(t, latency, 1.0)

	// Measured values are rounded to microsecond precision.
	assert.InDelta(t, latency, math.Round(latency*1e6)/1e6, 1e-12)

	// A non-positive hint also falls back to measurement.
	latency = EstimateLatency(map[string]interface{}{"latency_seconds": -1.0})
	assert.Greater(t, latency, 0.0)
}

func TestPricingAppliesRates(t *testing.T) {
	pricing := Pricing{InputPer1KTokensUSD: 1.0, OutputPer1KTokensUSD: 2.0}
	est := EstimateCost(strings.Repeat("a", 4000), nil, strings.Repeat("b", 4000), pricing)

	assert.Equal(t, 1000, est.InputTokens)
	assert.Equal(t, 1000, est.OutputTokens)
	assert.InDelta(t, 3.0, est.EstimatedCostUSD, 1e-9)
}
