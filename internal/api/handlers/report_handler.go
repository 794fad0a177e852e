package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/chateval/backend/internal/storage/sqlite"
	"github.com/chateval/backend/pkg/logger"
)

var errReportStoreDisabled = errors.New("report store is not configured")

type ReportHandler struct {
	store *sqlite.Client
}

func NewReportHandler(store *sqlite.Client) *ReportHandler {
	return &ReportHandler{store: store}
}

func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	if h.store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": errReportStoreDisabled.Error(),
		})
	}

	id := c.Params("id")
	record, err := h.store.GetReport(id)
	if err != nil {
		logger.Error("Failed to load report", zap.String("report_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load report",
		})
	}
	if record == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Report not found",
		})
	}

	if c.Query("format") == "html" {
		c.Set("Content-Type", "text/html; charset=utf-8")
		return c.SendString(record.CleanHTML)
	}

	c.Set("Content-Type", "application/json")
	if c.Query("view") == "clean" {
		return c.SendString(record.CleanJSON)
	}
	return c.SendString(record.CombinedJSON)
}

func (h *ReportHandler) ListReports(c *fiber.Ctx) error {
	if h.store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": errReportStoreDisabled.Error(),
		})
	}

	records, err := h.store.ListReports(c.QueryInt("limit", 50))
	if err != nil {
		logger.Error("Failed to list reports", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list reports",
		})
	}

	summaries := make([]fiber.Map, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, fiber.Map{
			"id":                       record.ID,
			"name":                     record.Name,
			"generated_at":             record.GeneratedAt,
			"num_pairs":                record.NumPairs,
			"mean_relevance":           record.MeanRelevance,
			"mean_completeness":        record.MeanCompleteness,
			"mean_hallucination_ratio": record.MeanHallucinationRatio,
		})
	}

	return c.JSON(fiber.Map{"reports": summaries})
}
