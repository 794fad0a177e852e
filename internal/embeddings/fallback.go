package embeddings

import (
	"context"
	"math"
)

const (
	fallbackDim      = 256
	fallbackMaxChars = 2000
)

// FallbackEmbedder produces deterministic character-accumulation vectors.
// It has no semantic understanding, but keeps the pipeline functional when
// no model backend is available.
type FallbackEmbedder struct{}

func NewFallbackEmbedder() *FallbackEmbedder {
	return &FallbackEmbedder{}
}

func (e *FallbackEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vectors = append(vectors, hashVector(text))
	}
	return vectors, nil
}

func (e *FallbackEmbedder) Name() string {
	return "fallback"
}

func (e *FallbackEmbedder) Dim() int {
	return fallbackDim
}

func hashVector(text string) []float32 {
	acc := make([]float64, fallbackDim)
	runes := []rune(text)
	if len(runes) > fallbackMaxChars {
		runes = runes[:fallbackMaxChars]
	}

	for i, r := range runes {
		acc[i%fallbackDim] += float64(r)
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, fallbackDim)
	if norm > 0 {
		for i, v := range acc {
			vec[i] = float32(v / norm)
		}
	}
	return vec
}
