package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chateval/backend/internal/ingestion"
	"github.com/chateval/backend/internal/parser"
	"github.com/chateval/backend/pkg/logger"
)

type ContextHandler struct {
	processor *ingestion.Processor
}

func NewContextHandler(processor *ingestion.Processor) *ContextHandler {
	return &ContextHandler{processor: processor}
}

// BuildFromHTML turns an HTML page into an evidence context object that can
// be passed back as the "context" field of an evaluate request.
func (h *ContextHandler) BuildFromHTML(c *fiber.Ctx) error {
	var req struct {
		URL         string `json:"url"`
		HTMLContent string `json:"html_content"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.URL == "" || req.HTMLContent == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "URL and HTML content are required",
		})
	}

	contextJSON, err := h.processor.ContextFromHTML(req.URL, req.HTMLContent)
	if err != nil {
		logger.Error("Failed to extract context from HTML", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to extract context from HTML",
		})
	}

	return c.JSON(fiber.Map{
		"context":   contextJSON,
		"num_items": len(parser.FlattenContext(contextJSON)),
	})
}
