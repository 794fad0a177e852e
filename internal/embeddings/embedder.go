package embeddings

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/chateval/backend/pkg/config"
	"github.com/chateval/backend/pkg/logger"
)

// Embedder maps texts to fixed-dimension vectors. Implementations must be
// deterministic for identical input and safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dim() int
}

var (
	defaultEmbedder Embedder
	defaultOnce     sync.Once
)

// Default returns the process-wide embedder, initializing it on first call.
// An OpenAI backend is used when an API key is configured; otherwise the
// deterministic hash fallback is selected.
func Default(cfg config.EmbeddingConfig) Embedder {
	defaultOnce.Do(func() {
		if cfg.APIKey != "" {
			defaultEmbedder = NewOpenAIEmbedder(cfg)
		} else {
			logger.Warn("No embedding API key configured, using hash fallback backend")
			defaultEmbedder = NewFallbackEmbedder()
		}
		logger.Info("Embedding backend selected",
			zap.String("backend", defaultEmbedder.Name()),
			zap.Int("dim", defaultEmbedder.Dim()),
		)
	})
	return defaultEmbedder
}

func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
