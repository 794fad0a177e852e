package evaluation

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/chateval/backend/internal/embeddings"
)

// scoreTopK bounds how many context texts the relevance and completeness
// scorers look at, in existing order.
const scoreTopK = 5

var (
	keywordPattern = regexp.MustCompile(`[a-z0-9\-']{2,}`)
	wordPattern    = regexp.MustCompile(`[a-z0-9]+`)
)

// Relevance is the mean cosine similarity between the reply embedding and
// the first top-k context embeddings. 0.0 when either input is empty.
func (s *Scorer) Relevance(ctx context.Context, aiText string, contextTexts []string) (float64, error) {
	if aiText == "" || len(contextTexts) == 0 {
		return 0.0, nil
	}

	k := scoreTopK
	if k > len(contextTexts) {
		k = len(contextTexts)
	}

	texts := make([]string, 0, k+1)
	texts = append(texts, aiText)
	texts = append(texts, contextTexts[:k]...)

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed reply context: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), len(texts))
	}

	var sum float64
	for i := 1; i < len(vectors); i++ {
		sum += embeddings.CosineSimilarity(vectors[0], vectors[i])
	}

	return sum / float64(k), nil
}

// Completeness blends a longest-common-subsequence F-measure between the
// reply and the joined top-k contexts with keyword coverage of the user
// intent: 0.6*overlap + 0.4*coverage. 0.0 when context or reply is empty.
func Completeness(userText, aiText string, contextTexts []string) float64 {
	if aiText == "" || len(contextTexts) == 0 {
		return 0.0
	}

	k := scoreTopK
	if k > len(contextTexts) {
		k = len(contextTexts)
	}
	reference := strings.Join(contextTexts[:k], "\n")

	overlap := lcsFMeasure(reference, aiText)

	userKeys := ExtractKeywords(userText, 12)
	aiKeys := ExtractKeywords(aiText, 30)

	coverage := 1.0
	if len(userKeys) > 0 {
		aiSet := make(map[string]bool, len(aiKeys))
		for _, key := range aiKeys {
			aiSet[key] = true
		}
		matched := 0
		for _, key := range userKeys {
			if aiSet[key] {
				matched++
			}
		}
		coverage = float64(matched) / float64(len(userKeys))
	}

	return 0.6*overlap + 0.4*coverage
}

// ExtractKeywords returns up to topK case-folded alphanumeric tokens longer
// than two characters, ranked by frequency with ties broken by first
// occurrence.
func ExtractKeywords(text string, topK int) []string {
	tokens := keywordPattern.FindAllString(strings.ToLower(text), -1)

	freq := make(map[string]int)
	firstSeen := make(map[string]int)
	var order []string
	for _, token := range tokens {
		if len(token) <= 2 {
			continue
		}
		if _, ok := freq[token]; !ok {
			firstSeen[token] = len(order)
			order = append(order, token)
		}
		freq[token]++
	}

	sort.SliceStable(order, func(a, b int) bool {
		if freq[order[a]] != freq[order[b]] {
			return freq[order[a]] > freq[order[b]]
		}
		return firstSeen[order[a]] < firstSeen[order[b]]
	})

	if len(order) > topK {
		order = order[:topK]
	}
	return order
}

// lcsFMeasure is a ROUGE-L style F-measure over word tokens: precision
// against the candidate, recall against the reference.
func lcsFMeasure(reference, candidate string) float64 {
	refTokens := wordPattern.FindAllString(strings.ToLower(reference), -1)
	candTokens := wordPattern.FindAllString(strings.ToLower(candidate), -1)
	if len(refTokens) == 0 || len(candTokens) == 0 {
		return 0.0
	}

	lcs := lcsLength(refTokens, candTokens)
	if lcs == 0 {
		return 0.0
	}

	precision := float64(lcs) / float64(len(candTokens))
	recall := float64(lcs) / float64(len(refTokens))

	return 2 * precision * recall / (precision + recall)
}

func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
