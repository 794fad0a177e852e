package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/chateval/backend/internal/storage/models"
	"github.com/chateval/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluation_reports (
		id TEXT PRIMARY KEY,
		name TEXT,
		generated_at TEXT NOT NULL,
		num_pairs INTEGER NOT NULL,
		mean_relevance REAL,
		mean_completeness REAL,
		mean_hallucination_ratio REAL,
		combined_json TEXT NOT NULL,
		clean_json TEXT,
		clean_html TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON evaluation_reports(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

func (c *Client) SaveReport(record *models.ReportRecord) error {
	_, err := c.db.Exec(`
		INSERT INTO evaluation_reports
		(id, name, generated_at, num_pairs, mean_relevance, mean_completeness, mean_hallucination_ratio, combined_json, clean_json, clean_html, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Name,
		record.GeneratedAt,
		record.NumPairs,
		record.MeanRelevance,
		record.MeanCompleteness,
		record.MeanHallucinationRatio,
		record.CombinedJSON,
		record.CleanJSON,
		record.CleanHTML,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	logger.Info("Report saved",
		zap.String("report_id", record.ID),
		zap.Int("num_pairs", record.NumPairs),
	)

	return nil
}

func (c *Client) GetReport(id string) (*models.ReportRecord, error) {
	row := c.db.QueryRow(`
		SELECT id, name, generated_at, num_pairs, mean_relevance, mean_completeness, mean_hallucination_ratio, combined_json, clean_json, clean_html, created_at
		FROM evaluation_reports WHERE id = ?`, id)

	var record models.ReportRecord
	var createdAt int64
	err := row.Scan(
		&record.ID,
		&record.Name,
		&record.GeneratedAt,
		&record.NumPairs,
		&record.MeanRelevance,
		&record.MeanCompleteness,
		&record.MeanHallucinationRatio,
		&record.CombinedJSON,
		&record.CleanJSON,
		&record.CleanHTML,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	record.CreatedAt = time.Unix(createdAt, 0)

	return &record, nil
}

func (c *Client) ListReports(limit int) ([]models.ReportRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := c.db.Query(`
		SELECT id, name, generated_at, num_pairs, mean_relevance, mean_completeness, mean_hallucination_ratio, created_at
		FROM evaluation_reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var records []models.ReportRecord
	for rows.Next() {
		var record models.ReportRecord
		var createdAt int64
		err := rows.Scan(
			&record.ID,
			&record.Name,
			&record.GeneratedAt,
			&record.NumPairs,
			&record.MeanRelevance,
			&record.MeanCompleteness,
			&record.MeanHallucinationRatio,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		record.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, record)
	}

	return records, rows.Err()
}
