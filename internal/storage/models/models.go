package models

import "time"

type ReportRecord struct {
	ID                     string
	Name                   string
	GeneratedAt            string
	NumPairs               int
	MeanRelevance          float64
	MeanCompleteness       float64
	MeanHallucinationRatio float64
	CombinedJSON           string
	CleanJSON              string
	CleanHTML              string
	CreatedAt              time.Time
}
