package embeddings

import (
	"context"
	"fmt"

	rediscache "github.com/chateval/backend/internal/cache/redis"
	"github.com/chateval/backend/internal/metrics"
	"github.com/chateval/backend/pkg/utils"
)

// CachedEmbedder caches per-text vectors in redis. Cache misses and cache
// errors both fall through to the wrapped embedder.
type CachedEmbedder struct {
	inner Embedder
	cache *rediscache.Client
}

func NewCachedEmbedder(inner Embedder, cache *rediscache.Client) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))
	missingTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if cached, ok := e.cache.GetVector(ctx, e.cacheKey(text)); ok {
			vectors[i] = cached
			metrics.EmbeddingCacheHits.Inc()
			continue
		}
		metrics.EmbeddingCacheMisses.Inc()
		missing = append(missing, i)
		missingTexts = append(missingTexts, text)
	}

	if len(missing) > 0 {
		computed, err := e.inner.Embed(ctx, missingTexts)
		if err != nil {
			return nil, err
		}
		if len(computed) != len(missing) {
			return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(computed), len(missing))
		}
		for j, i := range missing {
			vectors[i] = computed[j]
			e.cache.SetVector(ctx, e.cacheKey(texts[i]), computed[j])
		}
	}

	return vectors, nil
}

func (e *CachedEmbedder) Name() string {
	return e.inner.Name()
}

func (e *CachedEmbedder) Dim() int {
	return e.inner.Dim()
}

func (e *CachedEmbedder) cacheKey(text string) string {
	return "emb:" + e.inner.Name() + ":" + utils.HashString(text)
}
