package postgres

import (
	"database/sql"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanQualityMetrics scans a row in the order defined by qualityColumns.
func scanQualityMetrics(row scannable) (*model.QualityMetrics, error) {
	var (
		m          model.QualityMetrics
		source     string
		metricDate time.Time
		createdAt  sql.NullTime
	)
	err := row.Scan(
		&source,
		&metricDate,
		&m.TotalRecords,
		&m.ValidRecords,
		&m.DuplicateRecords,
		&m.NullValues,
		&m.QualityScore,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	m.DataSource = model.Source(source)
	m.MetricDate = metricDate.Format(time.DateOnly)
	if createdAt.Valid {
		m.CreatedAt = createdAt.Time
	}
	return &m, nil
}
