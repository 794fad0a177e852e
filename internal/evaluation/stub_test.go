package evaluation

import (
	"context"
	"strings"
	"sync"
)

const bowDim = 256

var bowVocab = struct {
	sync.Mutex
	index map[string]int
}{index: make(map[string]int)}

func bowTokenIndex(token string) int {
	bowVocab.Lock()
	defer bowVocab.Unlock()
	if idx, ok := bowVocab.index[token]; ok {
		return idx
	}
	idx := len(bowVocab.index) % bowDim
	bowVocab.index[token] = idx
	return idx
}

// bowEmbedder is a deterministic bag-of-words embedder for tests: shared
// tokens produce high cosine similarity, disjoint tokens produce zero.
type bowEmbedder struct{}

func (bowEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, bowDim)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			token = strings.Trim(token, ".,!?;:")
			if token == "" {
				continue
			}
			vec[bowTokenIndex(token)]++
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (bowEmbedder) Name() string { return "test-bow" }

func (bowEmbedder) Dim() int { return bowDim }
