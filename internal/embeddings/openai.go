package embeddings

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/chateval/backend/pkg/circuitbreaker"
	"github.com/chateval/backend/pkg/config"
	"github.com/chateval/backend/pkg/logger"
	"github.com/chateval/backend/pkg/retry"
)

const embeddingBatchSize = 100

type OpenAIEmbedder struct {
	client      *openai.Client
	model       string
	dim         int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewOpenAIEmbedder(cfg config.EmbeddingConfig) *OpenAIEmbedder {
	client := openai.NewClient(cfg.APIKey)

	cb := circuitbreaker.NewCircuitBreaker("embeddings", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	logger.Info("OpenAI embedder initialized",
		zap.String("model", cfg.Model),
		zap.Int("dim", cfg.Dim),
	)

	return &OpenAIEmbedder{
		client:      client,
		model:       cfg.Model,
		dim:         cfg.Dim,
		timeout:     timeout,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout*time.Duration(1+len(texts)/embeddingBatchSize))
	defer cancel()

	var embeddings [][]float32

	for i := 0; i < len(texts); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[i:end]

		batchEmbeddings, err := retry.DoWithResult(ctx, e.retryConfig, func() ([][]float32, error) {
			var result [][]float32
			err := e.cb.Execute(ctx, func() error {
				resp, err := e.client.CreateEmbeddings(
					ctx,
					openai.EmbeddingRequest{
						Input: batch,
						Model: openai.EmbeddingModel(e.model),
					},
				)

				if err != nil {
					return fmt.Errorf("failed to generate embeddings: %w", err)
				}

				for _, data := range resp.Data {
					embedding := make([]float32, len(data.Embedding))
					copy(embedding, data.Embedding)
					result = append(result, embedding)
				}

				return nil
			})
			return result, err
		})

		if err != nil {
			return nil, err
		}

		embeddings = append(embeddings, batchEmbeddings...)
	}

	logger.Debug("Embeddings generated", zap.Int("count", len(embeddings)))

	return embeddings, nil
}

func (e *OpenAIEmbedder) Name() string {
	return "openai"
}

func (e *OpenAIEmbedder) Dim() int {
	return e.dim
}
