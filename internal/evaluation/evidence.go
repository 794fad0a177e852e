package evaluation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/chateval/backend/internal/embeddings"
	"github.com/chateval/backend/internal/parser"
)

const (
	ConfidenceStrong = "strong"
	ConfidenceMedium = "medium"
	ConfidenceWeak   = "weak"

	strongThreshold = 0.55
	mediumThreshold = 0.35

	maxEvidenceMatches = 3
	maxSnippetChars    = 800
)

type EvidenceMatch struct {
	Source  string  `json:"source"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

type Claim struct {
	Claim              string          `json:"claim"`
	ClaimType          string          `json:"claim_type"`
	BestSupportScore   float64         `json:"best_support_score"`
	EvidenceConfidence string          `json:"evidence_confidence"`
	IsHallucination    bool            `json:"is_hallucination"`
	Evidence           []EvidenceMatch `json:"evidence"`
}

type HallucinationReport struct {
	Claims             []Claim `json:"claims"`
	HallucinationRatio float64 `json:"hallucination_ratio"`
	NumClaims          int     `json:"num_claims"`
}

// Scorer runs the embedding-based scoring primitives against an immutable
// embedding backend.
type Scorer struct {
	embedder embeddings.Embedder
}

func NewScorer(embedder embeddings.Embedder) *Scorer {
	return &Scorer{embedder: embedder}
}

// SearchEvidence ranks every context item against the claim and returns the
// top matches in descending score order. Ties keep the earlier context item.
// BestScore is the maximum similarity across all items, 0.0 with no context.
func (s *Scorer) SearchEvidence(ctx context.Context, claim string, items []parser.ContextItem) (best float64, evidence []EvidenceMatch, err error) {
	if len(items) == 0 {
		return 0.0, []EvidenceMatch{}, nil
	}

	texts := make([]string, 0, len(items)+1)
	texts = append(texts, claim)
	for _, item := range items {
		texts = append(texts, item.Text)
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to embed claim context: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), len(texts))
	}

	claimVec := vectors[0]
	sims := make([]float64, len(items))
	best = math.Inf(-1)
	for i := range items {
		sims[i] = embeddings.CosineSimilarity(claimVec, vectors[i+1])
		if sims[i] > best {
			best = sims[i]
		}
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sims[order[a]] > sims[order[b]]
	})

	topN := maxEvidenceMatches
	if topN > len(order) {
		topN = len(order)
	}

	evidence = make([]EvidenceMatch, 0, topN)
	for _, idx := range order[:topN] {
		evidence = append(evidence, EvidenceMatch{
			Source:  items[idx].Source,
			Snippet: truncateRunes(items[idx].Text, maxSnippetChars),
			Score:   sims[idx],
		})
	}

	return best, evidence, nil
}

// BuildHallucinationReport extracts claims from the reply, searches evidence
// for each, and flags claims whose best support score falls below the
// threshold. A reply with no extractable claims has ratio 0.0.
func (s *Scorer) BuildHallucinationReport(ctx context.Context, aiText string, items []parser.ContextItem, supportThreshold float64) (HallucinationReport, error) {
	candidates := ExtractCandidateClaims(aiText)
	if len(candidates) == 0 {
		return HallucinationReport{Claims: []Claim{}, HallucinationRatio: 0.0, NumClaims: 0}, nil
	}

	claims := make([]Claim, 0, len(candidates))
	flagged := 0
	for _, candidate := range candidates {
		best, evidence, err := s.SearchEvidence(ctx, candidate, items)
		if err != nil {
			return HallucinationReport{}, err
		}

		isHallucination := best < supportThreshold
		if isHallucination {
			flagged++
		}

		claims = append(claims, Claim{
			Claim:              candidate,
			ClaimType:          ClaimType(candidate),
			BestSupportScore:   best,
			EvidenceConfidence: confidenceBucket(best),
			IsHallucination:    isHallucination,
			Evidence:           evidence,
		})
	}

	return HallucinationReport{
		Claims:             claims,
		HallucinationRatio: float64(flagged) / float64(len(claims)),
		NumClaims:          len(claims),
	}, nil
}

// confidenceBucket is a pure function of the best support score. It is
// independent of the hallucination threshold, so a strong-confidence claim
// can still be flagged under an unusually high threshold.
func confidenceBucket(best float64) string {
	switch {
	case best >= strongThreshold:
		return ConfidenceStrong
	case best >= mediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceWeak
	}
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
