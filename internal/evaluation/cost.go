package evaluation

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// costTopContexts bounds how many context snippets count toward the
// estimated prompt, independent of the scoring top-k.
const costTopContexts = 5

type Pricing struct {
	InputPer1KTokensUSD  float64
	OutputPer1KTokensUSD float64
}

func DefaultPricing() Pricing {
	return Pricing{InputPer1KTokensUSD: 0.03, OutputPer1KTokensUSD: 0.06}
}

type CostEstimate struct {
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// ApproxTokenCount approximates tokens as one per four characters, with a
// floor of one token for non-empty text.
func ApproxTokenCount(text string) int {
	if text == "" {
		return 0
	}
	count := utf8.RuneCountInString(text) / 4
	if count < 1 {
		return 1
	}
	return count
}

// EstimateCost prices the approximate prompt (user text plus the first five
// context snippets) and completion against per-1k-token rates.
func EstimateCost(userText string, topContexts []string, aiText string, pricing Pricing) CostEstimate {
	contexts := topContexts
	if len(contexts) > costTopContexts {
		contexts = contexts[:costTopContexts]
	}
	inputText := userText + "\n" + strings.Join(contexts, "\n")

	inputTokens := ApproxTokenCount(inputText)
	outputTokens := ApproxTokenCount(aiText)

	cost := float64(inputTokens)/1000.0*pricing.InputPer1KTokensUSD +
		float64(outputTokens)/1000.0*pricing.OutputPer1KTokensUSD

	return CostEstimate{
		InputTokens:      inputTokens,
		OutputTokens:     outputTokens,
		EstimatedCostUSD: cost,
	}
}

// EstimateLatency prefers an explicit latency hint from turn metadata. When
// the hint is absent or non-positive it measures a minimal real delay as a
// placeholder, so the reported value is never negative.
func EstimateLatency(aiMeta map[string]interface{}) float64 {
	if len(aiMeta) == 0 {
		return 0.0
	}

	latency := metaFloat(aiMeta, "latency_seconds")
	if latency == 0 {
		latency = metaFloat(aiMeta, "response_time")
	}
	if latency == 0 {
		latency = metaFloat(aiMeta, "response_time_seconds")
	}

	if latency <= 0 {
		start := time.Now()
		time.Sleep(10 * time.Millisecond)
		latency = math.Round(time.Since(start).Seconds()*1e6) / 1e6
	}

	return latency
}

func metaFloat(meta map[string]interface{}, key string) float64 {
	switch v := meta[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
