package report

import (
	"fmt"
	"math"
	"time"

	"github.com/chateval/backend/internal/evaluation"
	"github.com/chateval/backend/internal/parser"
)

type ConversationSummary struct {
	NumTurnsInConversation int `json:"num_turns_in_conversation"`
	NumPairsEvaluated      int `json:"num_pairs_evaluated"`
}

type Metadata struct {
	NumContextItems        int                           `json:"num_context_items"`
	EmbeddingBackend       string                        `json:"embedding_backend"`
	EvalDurationSeconds    float64                       `json:"eval_duration_seconds"`
	HallucinationThreshold float64                       `json:"hallucination_threshold"`
	TopKForTokenEstimates  int                           `json:"top_k_for_token_estimates"`
	SourceIDMap            map[string]string             `json:"source_id_map,omitempty"`
	RequiresManualReview   []evaluation.ManualReviewItem `json:"requires_manual_review,omitempty"`
}

// Combined is the full evaluation output: aggregates plus every turn report.
type Combined struct {
	GeneratedAt         string                  `json:"generated_at"`
	ConversationSummary ConversationSummary     `json:"conversation_summary"`
	Metadata            Metadata                `json:"metadata"`
	Aggregates          evaluation.Aggregates   `json:"aggregates"`
	TurnReports         []evaluation.TurnReport `json:"turn_reports"`
}

type BuildParams struct {
	NumTurnsInConversation int
	ContextItems           []parser.ContextItem
	TurnReports            []evaluation.TurnReport
	EmbeddingBackend       string
	EvalDuration           time.Duration
	HallucinationThreshold float64
	TopK                   int
}

func BuildCombined(params BuildParams) Combined {
	turnReports := params.TurnReports
	if turnReports == nil {
		turnReports = []evaluation.TurnReport{}
	}

	sourceIDMap := make(map[string]string)
	for _, item := range params.ContextItems {
		if item.ID != "" {
			sourceIDMap[item.ID] = item.Source
		}
	}
	if len(sourceIDMap) == 0 {
		sourceIDMap = nil
	}

	var allManual []evaluation.ManualReviewItem
	for _, turn := range turnReports {
		allManual = append(allManual, turn.RequiresManualReview...)
	}

	return Combined{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339Nano),
		ConversationSummary: ConversationSummary{
			NumTurnsInConversation: params.NumTurnsInConversation,
			NumPairsEvaluated:      len(turnReports),
		},
		Metadata: Metadata{
			NumContextItems:        len(params.ContextItems),
			EmbeddingBackend:       params.EmbeddingBackend,
			EvalDurationSeconds:    round6(params.EvalDuration.Seconds()),
			HallucinationThreshold: params.HallucinationThreshold,
			TopKForTokenEstimates:  params.TopK,
			SourceIDMap:            sourceIDMap,
			RequiresManualReview:   allManual,
		},
		Aggregates:  evaluation.Aggregate(turnReports),
		TurnReports: turnReports,
	}
}

type PerTurnScore struct {
	PairIndex            int         `json:"pair_index"`
	TurnID               interface{} `json:"turn_id"`
	UserPreview          string      `json:"user_preview"`
	AIPreview            string      `json:"ai_preview"`
	Relevance            float64     `json:"relevance"`
	Completeness         float64     `json:"completeness"`
	HallucinationRatio   float64     `json:"hallucination_ratio"`
	RequiresManualReview bool        `json:"requires_manual_review"`
}

type Finding struct {
	PairIndex          int         `json:"pair_index"`
	TurnID             interface{} `json:"turn_id"`
	Claim              string      `json:"claim"`
	ClaimType          string      `json:"claim_type"`
	EvidenceConfidence string      `json:"evidence_confidence"`
	BestSupportScore   float64     `json:"best_support_score"`
	TopEvidenceSnippet string      `json:"top_evidence_snippet"`
	TopEvidenceSource  string      `json:"top_evidence_source"`
}

type CleanSummary struct {
	MeanRelevance          float64 `json:"mean_relevance"`
	MeanCompleteness       float64 `json:"mean_completeness"`
	MeanHallucinationRatio float64 `json:"mean_hallucination_ratio"`
	EvaluatedResponses     int     `json:"evaluated_responses"`
}

type CleanCosts struct {
	TotalInputTokens  int     `json:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens"`
	EstimatedCostUSD  float64 `json:"estimated_cost_usd"`
}

// Clean is the compact, human-oriented projection of a combined report.
type Clean struct {
	GeneratedAt            string              `json:"generated_at"`
	ConversationSummary    ConversationSummary `json:"conversation_summary"`
	Summary                CleanSummary        `json:"summary"`
	PerTurnScores          []PerTurnScore      `json:"per_turn_scores"`
	HallucinationFindings  []Finding           `json:"hallucination_findings"`
	Costs                  CleanCosts          `json:"costs"`
	Warnings               []string            `json:"warnings"`
	NaturalLanguageSummary string              `json:"natural_language_summary"`
}

func MakeClean(combined Combined) Clean {
	perTurn := make([]PerTurnScore, 0, len(combined.TurnReports))
	findings := make([]Finding, 0)
	warnings := make([]string, 0)

	manualNeeded := false
	for _, turn := range combined.TurnReports {
		turnID := turnIdentifier(turn)

		requiresReview := len(turn.RequiresManualReview) > 0
		if requiresReview {
			manualNeeded = true
		}

		perTurn = append(perTurn, PerTurnScore{
			PairIndex:            turn.PairIndex,
			TurnID:               turnID,
			UserPreview:          truncate(turn.UserTextPreview, 200),
			AIPreview:            truncate(turn.AITextPreview, 300),
			Relevance:            round3(turn.Relevance),
			Completeness:         round3(turn.Completeness),
			HallucinationRatio:   round3(turn.Hallucination.HallucinationRatio),
			RequiresManualReview: requiresReview,
		})

		for _, claim := range turn.Hallucination.Claims {
			if claim.EvidenceConfidence != evaluation.ConfidenceWeak && claim.EvidenceConfidence != evaluation.ConfidenceMedium {
				continue
			}
			var snippet, source string
			if len(claim.Evidence) > 0 {
				snippet = truncate(claim.Evidence[0].Snippet, 280)
				source = claim.Evidence[0].Source
			}
			findings = append(findings, Finding{
				PairIndex:          turn.PairIndex,
				TurnID:             turnID,
				Claim:              claim.Claim,
				ClaimType:          claim.ClaimType,
				EvidenceConfidence: claim.EvidenceConfidence,
				BestSupportScore:   claim.BestSupportScore,
				TopEvidenceSnippet: snippet,
				TopEvidenceSource:  source,
			})
		}
	}

	if manualNeeded {
		warnings = append(warnings, "Some responses have weak/medium evidence - manual review recommended.")
	}
	if combined.Aggregates.MeanCompleteness < 0.35 {
		warnings = append(warnings, "Completeness is low (mean < 0.35).")
	}

	return Clean{
		GeneratedAt:         combined.GeneratedAt,
		ConversationSummary: combined.ConversationSummary,
		Summary: CleanSummary{
			MeanRelevance:          round3(combined.Aggregates.MeanRelevance),
			MeanCompleteness:       round3(combined.Aggregates.MeanCompleteness),
			MeanHallucinationRatio: round3(combined.Aggregates.MeanHallucinationRatio),
			EvaluatedResponses:     len(perTurn),
		},
		PerTurnScores:         perTurn,
		HallucinationFindings: findings,
		Costs: CleanCosts{
			TotalInputTokens:  combined.Aggregates.TotalInputTokens,
			TotalOutputTokens: combined.Aggregates.TotalOutputTokens,
			EstimatedCostUSD:  combined.Aggregates.TotalEstimatedCostUSD,
		},
		Warnings:               warnings,
		NaturalLanguageSummary: naturalLanguageSummary(combined.Aggregates),
	}
}

func naturalLanguageSummary(agg evaluation.Aggregates) string {
	return fmt.Sprintf(
		"Across %d evaluated replies: mean relevance = %.2f, mean completeness = %.2f, mean hallucination ratio = %.2f.",
		agg.NumTurns, agg.MeanRelevance, agg.MeanCompleteness, agg.MeanHallucinationRatio,
	)
}

func turnIdentifier(turn evaluation.TurnReport) interface{} {
	if turn.AIMeta != nil {
		if id, ok := turn.AIMeta["turn"]; ok && id != nil {
			return id
		}
		if id, ok := turn.AIMeta["id"]; ok && id != nil {
			return id
		}
	}
	return turn.PairIndex
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
