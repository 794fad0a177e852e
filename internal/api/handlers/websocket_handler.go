package handlers

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/chateval/backend/internal/embeddings"
	"github.com/chateval/backend/internal/evaluation"
	"github.com/chateval/backend/internal/parser"
	"github.com/chateval/backend/internal/report"
	"github.com/chateval/backend/pkg/config"
	"github.com/chateval/backend/pkg/logger"
)

type WebSocketHandler struct {
	evaluator *evaluation.Evaluator
	embedder  embeddings.Embedder
	defaults  config.EvaluationConfig
}

func NewWebSocketHandler(evaluator *evaluation.Evaluator, embedder embeddings.Embedder, defaults config.EvaluationConfig) *WebSocketHandler {
	return &WebSocketHandler{
		evaluator: evaluator,
		embedder:  embedder,
		defaults:  defaults,
	}
}

// HandleConnection streams evaluation progress: one "turn" message per
// evaluated pair, then a "complete" message with the combined report.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg map[string]interface{}
		if err := c.ReadJSON(&msg); err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		msgType, _ := msg["type"].(string)
		if msgType != "evaluate" {
			continue
		}

		if err := h.streamEvaluation(c, msg); err != nil {
			logger.Error("Failed to stream evaluation", zap.Error(err))
			h.sendError(c, "Failed to evaluate conversation")
		}
	}
}

func (h *WebSocketHandler) streamEvaluation(c *websocket.Conn, msg map[string]interface{}) error {
	req := evaluateRequest{payload: msg}

	conv := req.conversation()
	ctxRaw := req.context()
	if conv == nil || ctxRaw == nil {
		h.sendError(c, "Message must include 'conversation' and 'context'")
		return nil
	}

	opts := evaluation.Options{
		SupportThreshold: req.float("hallucination_threshold", h.defaults.HallucinationThreshold),
		TopK:             req.integer("top_k", h.defaults.TopK),
		Pricing: evaluation.Pricing{
			InputPer1KTokensUSD:  req.float("input_price", h.defaults.InputPricePer1K),
			OutputPer1KTokensUSD: req.float("output_price", h.defaults.OutputPricePer1K),
		},
	}

	start := time.Now()
	items := parser.FlattenContext(ctxRaw)
	pairs := parser.ExtractPairs(conv)

	turnReports := make([]evaluation.TurnReport, 0, len(pairs))
	for _, pair := range pairs {
		turnReport, err := h.evaluator.EvaluateTurn(context.Background(), pair, items, opts)
		if err != nil {
			return err
		}
		turnReports = append(turnReports, turnReport)

		if err := c.WriteJSON(map[string]interface{}{
			"type": "turn",
			"data": turnReport,
		}); err != nil {
			return err
		}
	}

	combined := report.BuildCombined(report.BuildParams{
		NumTurnsInConversation: len(parser.Turns(conv)),
		ContextItems:           items,
		TurnReports:            turnReports,
		EmbeddingBackend:       h.embedder.Name(),
		EvalDuration:           time.Since(start),
		HallucinationThreshold: opts.SupportThreshold,
		TopK:                   opts.TopK,
	})

	return c.WriteJSON(map[string]interface{}{
		"type": "complete",
		"data": combined,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, message string) {
	if err := c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": message,
	}); err != nil {
		logger.Error("Failed to send WebSocket error", zap.Error(err))
	}
}
