package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chateval/backend/internal/embeddings"
	"github.com/chateval/backend/internal/evaluation"
	"github.com/chateval/backend/pkg/config"
)

func evaluateTestApp(t *testing.T) *fiber.App {
	t.Helper()

	handler := NewEvaluateHandler(
		evaluation.NewEvaluator(evaluation.NewScorer(embeddings.NewFallbackEmbedder())),
		embeddings.NewFallbackEmbedder(),
		nil,
		config.EvaluationConfig{
			HallucinationThreshold: 0.28,
			TopK:                   5,
			InputPricePer1K:        0.03,
			OutputPricePer1K:       0.06,
		},
	)

	app := fiber.New()
	app.Post("/api/v1/evaluate/combined", handler.HandleEvaluateCombined)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded))
	}
	return resp, decoded
}

func evaluatePayload() map[string]interface{} {
	return map[string]interface{}{
		"conversation": map[string]interface{}{
			"conversation_turns": []interface{}{
				map[string]interface{}{"role": "user", "message": "What is the capital of France?"},
				map[string]interface{}{"role": "assistant", "message": "The capital of France is Paris."},
			},
		},
		"context": map[string]interface{}{
			"data": map[string]interface{}{
				"vector_data": []interface{}{
					map[string]interface{}{"id": "c1", "text": "Paris is the capital of France.", "source_url": "https://wiki.example"},
				},
			},
		},
	}
}

func TestHandleEvaluateCombined(t *testing.T) {
	app := evaluateTestApp(t)

	resp, body := postJSON(t, app, "/api/v1/evaluate/combined", evaluatePayload())
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	combined, ok := body["combined"].(map[string]interface{})
	require.True(t, ok)
	summary := combined["conversation_summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["num_pairs_evaluated"])
	assert.Equal(t, float64(2), summary["num_turns_in_conversation"])

	metadata := combined["metadata"].(map[string]interface{})
	assert.Equal(t, "fallback", metadata["embedding_backend"])
	assert.Equal(t, 0.28, metadata["hallucination_threshold"])

	clean, ok := body["clean"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, clean["per_turn_scores"], 1)

	assert.Nil(t, body["saved_report_id"])
	assert.NotEmpty(t, body["generated_at"])
}

func TestHandleEvaluateCombinedAcceptsAliases(t *testing.T) {
	app := evaluateTestApp(t)

	payload := evaluatePayload()
	payload["conv"] = payload["conversation"]
	delete(payload, "conversation")
	payload["contexts"] = payload["context"]
	delete(payload, "context")

	resp, _ := postJSON(t, app, "/api/v1/evaluate/combined", payload)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHandleEvaluateCombinedMissingFields(t *testing.T) {
	app := evaluateTestApp(t)

	resp, body := postJSON(t, app, "/api/v1/evaluate/combined", map[string]interface{}{
		"conversation": map[string]interface{}{"conversation_turns": []interface{}{}},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "conversation")

	resp, _ = postJSON(t, app, "/api/v1/evaluate/combined", map[string]interface{}{
		"context": map[string]interface{}{},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleEvaluateCombinedInvalidJSON(t *testing.T) {
	app := evaluateTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate/combined", bytes.NewReader([]byte("{broken")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleEvaluateCombinedSaveWithoutStore(t *testing.T) {
	app := evaluateTestApp(t)

	payload := evaluatePayload()
	payload["save"] = true

	resp, body := postJSON(t, app, "/api/v1/evaluate/combined", payload)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body["error"], "not configured")
}

func TestHandleEvaluateCombinedSaveErrorInDebugMode(t *testing.T) {
	app := evaluateTestApp(t)

	payload := evaluatePayload()
	payload["save"] = true
	payload["debug_mode"] = true

	resp, body := postJSON(t, app, "/api/v1/evaluate/combined", payload)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.NotNil(t, body["combined"])
	assert.Contains(t, body["save_error"], "not configured")
	assert.Nil(t, body["saved_report_id"])
}

func TestHandleEvaluateCombinedNegativeTopK(t *testing.T) {
	app := evaluateTestApp(t)

	payload := evaluatePayload()
	payload["top_k"] = -1

	resp, body := postJSON(t, app, "/api/v1/evaluate/combined", payload)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["combined"])
}

func TestHandleEvaluateCombinedOverrides(t *testing.T) {
	app := evaluateTestApp(t)

	payload := evaluatePayload()
	payload["hallucination_threshold"] = 0.5
	payload["top_k"] = 3

	resp, body := postJSON(t, app, "/api/v1/evaluate/combined", payload)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	metadata := body["combined"].(map[string]interface{})["metadata"].(map[string]interface{})
	assert.Equal(t, 0.5, metadata["hallucination_threshold"])
	assert.Equal(t, float64(3), metadata["top_k_for_token_estimates"])
}
