package handlers

import (
	"context"
	"encoding/json"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chateval/backend/internal/embeddings"
	"github.com/chateval/backend/internal/evaluation"
	"github.com/chateval/backend/internal/metrics"
	"github.com/chateval/backend/internal/parser"
	"github.com/chateval/backend/internal/report"
	"github.com/chateval/backend/internal/storage/models"
	"github.com/chateval/backend/internal/storage/sqlite"
	"github.com/chateval/backend/pkg/config"
	"github.com/chateval/backend/pkg/logger"
)

type EvaluateHandler struct {
	evaluator *evaluation.Evaluator
	embedder  embeddings.Embedder
	store     *sqlite.Client
	defaults  config.EvaluationConfig
}

func NewEvaluateHandler(evaluator *evaluation.Evaluator, embedder embeddings.Embedder, store *sqlite.Client, defaults config.EvaluationConfig) *EvaluateHandler {
	return &EvaluateHandler{
		evaluator: evaluator,
		embedder:  embedder,
		store:     store,
		defaults:  defaults,
	}
}

type evaluateRequest struct {
	payload map[string]interface{}
}

func (r evaluateRequest) conversation() map[string]interface{} {
	if conv, ok := r.payload["conversation"].(map[string]interface{}); ok {
		return conv
	}
	if conv, ok := r.payload["conv"].(map[string]interface{}); ok {
		return conv
	}
	return nil
}

func (r evaluateRequest) context() interface{} {
	if ctx, ok := r.payload["context"]; ok && ctx != nil {
		return ctx
	}
	return r.payload["contexts"]
}

func (r evaluateRequest) float(key string, fallback float64) float64 {
	if v, ok := r.payload[key].(float64); ok {
		return v
	}
	return fallback
}

func (r evaluateRequest) integer(key string, fallback int) int {
	if v, ok := r.payload[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func (r evaluateRequest) boolean(key string) bool {
	v, _ := r.payload[key].(bool)
	return v
}

func (r evaluateRequest) str(key string) string {
	v, _ := r.payload[key].(string)
	return v
}

// HandleEvaluateCombined evaluates every user-assistant pair in the
// conversation against the supplied context and returns the combined and
// clean reports.
func (h *EvaluateHandler) HandleEvaluateCombined(c *fiber.Ctx) error {
	var payload map[string]interface{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON body",
		})
	}

	req := evaluateRequest{payload: payload}

	conv := req.conversation()
	ctxRaw := req.context()
	if conv == nil || ctxRaw == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Payload must include 'conversation' and 'context'",
		})
	}

	opts := evaluation.Options{
		SupportThreshold: req.float("hallucination_threshold", h.defaults.HallucinationThreshold),
		TopK:             req.integer("top_k", h.defaults.TopK),
		Pricing: evaluation.Pricing{
			InputPer1KTokensUSD:  req.float("input_price", h.defaults.InputPricePer1K),
			OutputPer1KTokensUSD: req.float("output_price", h.defaults.OutputPricePer1K),
		},
	}
	debugMode := req.boolean("debug_mode")
	saveFlag := req.boolean("save")
	saveName := req.str("save_basename")

	combined, clean, err := h.runEvaluation(c.Context(), conv, ctxRaw, opts)
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues("error").Inc()
		logger.Error("Evaluation failed", zap.Error(err))
		if debugMode {
			return c.JSON(fiber.Map{
				"error":     err.Error(),
				"traceback": string(debug.Stack()),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error while evaluating conversation",
		})
	}

	metrics.EvaluationsTotal.WithLabelValues("success").Inc()

	var savedReportID interface{}
	if saveFlag {
		reportID, saveErr := h.saveReport(combined, clean, saveName)
		if saveErr != nil {
			metrics.ReportsSaved.WithLabelValues("error").Inc()
			logger.Error("Failed to save report", zap.Error(saveErr))
			if debugMode {
				return c.JSON(fiber.Map{
					"combined":        combined,
					"clean":           clean,
					"saved_report_id": nil,
					"save_error":      saveErr.Error(),
					"generated_at":    combined.GeneratedAt,
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to save report: " + saveErr.Error(),
			})
		}
		metrics.ReportsSaved.WithLabelValues("success").Inc()
		savedReportID = reportID
	}

	return c.JSON(fiber.Map{
		"combined":        combined,
		"clean":           clean,
		"saved_report_id": savedReportID,
		"generated_at":    combined.GeneratedAt,
	})
}

func (h *EvaluateHandler) runEvaluation(ctx context.Context, conv map[string]interface{}, ctxRaw interface{}, opts evaluation.Options) (report.Combined, report.Clean, error) {
	start := time.Now()

	items := parser.FlattenContext(ctxRaw)
	pairs := parser.ExtractPairs(conv)

	logger.Info("Evaluating conversation",
		zap.Int("pairs", len(pairs)),
		zap.Int("context_items", len(items)),
	)

	turnReports := make([]evaluation.TurnReport, 0, len(pairs))
	for _, pair := range pairs {
		turnReport, err := h.evaluator.EvaluateTurn(ctx, pair, items, opts)
		if err != nil {
			return report.Combined{}, report.Clean{}, err
		}
		turnReports = append(turnReports, turnReport)
	}

	duration := time.Since(start)
	metrics.EvalDuration.Observe(duration.Seconds())

	combined := report.BuildCombined(report.BuildParams{
		NumTurnsInConversation: len(parser.Turns(conv)),
		ContextItems:           items,
		TurnReports:            turnReports,
		EmbeddingBackend:       h.embedder.Name(),
		EvalDuration:           duration,
		HallucinationThreshold: opts.SupportThreshold,
		TopK:                   opts.TopK,
	})

	return combined, report.MakeClean(combined), nil
}

func (h *EvaluateHandler) saveReport(combined report.Combined, clean report.Clean, name string) (string, error) {
	if h.store == nil {
		return "", errReportStoreDisabled
	}

	combinedJSON, err := json.Marshal(combined)
	if err != nil {
		return "", err
	}
	cleanJSON, err := json.Marshal(clean)
	if err != nil {
		return "", err
	}

	if name != "" {
		name = filepath.Base(name)
	}

	record := &models.ReportRecord{
		ID:                     uuid.New().String(),
		Name:                   name,
		GeneratedAt:            combined.GeneratedAt,
		NumPairs:               combined.ConversationSummary.NumPairsEvaluated,
		MeanRelevance:          combined.Aggregates.MeanRelevance,
		MeanCompleteness:       combined.Aggregates.MeanCompleteness,
		MeanHallucinationRatio: combined.Aggregates.MeanHallucinationRatio,
		CombinedJSON:           string(combinedJSON),
		CleanJSON:              string(cleanJSON),
		CleanHTML:              report.RenderHTML(clean),
		CreatedAt:              time.Now(),
	}

	if err := h.store.SaveReport(record); err != nil {
		return "", err
	}

	return record.ID, nil
}
