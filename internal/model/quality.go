package model

import "time"

// QualityMetrics summarizes one run's data quality for a single source.
type QualityMetrics struct {
	DataSource       Source    `json:"data_source"`
	MetricDate       string    `json:"metric_date"`
	TotalRecords     int       `json:"total_records"`
	ValidRecords     int       `json:"valid_records"`
	DuplicateRecords int       `json:"duplicate_records"`
	NullValues       int       `json:"null_values"`
	QualityScore     float64   `json:"quality_score"`
	CreatedAt        time.Time `json:"created_at"`
}
