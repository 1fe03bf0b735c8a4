package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/contentflow/internal/model"
	"github.com/alfredjeanlab/contentflow/internal/warehouse"
)

// insertBatchSize caps the number of rows per INSERT statement.
const insertBatchSize = 500

const qualityColumns = `data_source, metric_date, total_records, valid_records,
	duplicate_records, null_values, quality_score, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryBulkInsert(ctx context.Context, db executor, table string, rows []model.Row) (int64, error) {
	if !warehouse.RawTables[table] {
		return 0, fmt.Errorf("bulk insert: unknown table %q", table)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	columns := rows[0].Columns()
	for _, r := range rows[1:] {
		if !slices.Equal(r.Columns(), columns) {
			return 0, fmt.Errorf("bulk insert into %s: record %s has mismatched columns", table, r.RecordID())
		}
	}

	var inserted int64
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		query, args := buildInsert(table, columns, rows[start:end])
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("bulk insert into %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("bulk insert into %s: rows affected: %w", table, err)
		}
		inserted += n
	}
	return inserted, nil
}

// buildInsert renders a multi-row INSERT that skips rows whose id exists.
func buildInsert(table string, columns []string, rows []model.Row) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	args := make([]any, 0, len(rows)*len(columns))
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, v := range r.Values() {
			if j > 0 {
				b.WriteString(", ")
			}
			args = append(args, columnValue(v))
			fmt.Fprintf(&b, "$%d", len(args))
		}
		b.WriteByte(')')
	}
	b.WriteString(" ON CONFLICT (id) DO NOTHING")
	return b.String(), args
}

// columnValue adapts record values the driver cannot encode directly.
func columnValue(v any) any {
	if tags, ok := v.([]string); ok {
		if tags == nil {
			tags = []string{}
		}
		return pq.Array(tags)
	}
	return v
}

func queryStoreQualityMetrics(ctx context.Context, db executor, m *model.QualityMetrics) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO data_quality_metrics (`+qualityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (data_source, metric_date) DO UPDATE SET
			total_records = EXCLUDED.total_records,
			valid_records = EXCLUDED.valid_records,
			duplicate_records = EXCLUDED.duplicate_records,
			null_values = EXCLUDED.null_values,
			quality_score = EXCLUDED.quality_score,
			created_at = EXCLUDED.created_at`,
		string(m.DataSource),
		m.MetricDate,
		m.TotalRecords,
		m.ValidRecords,
		m.DuplicateRecords,
		m.NullValues,
		m.QualityScore,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store quality metrics for %s: %w", m.DataSource, err)
	}
	return nil
}

func queryQualityMetrics(ctx context.Context, db executor, ds string) ([]model.QualityMetrics, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+qualityColumns+`
		FROM data_quality_metrics WHERE metric_date = $1 ORDER BY data_source`, ds)
	if err != nil {
		return nil, fmt.Errorf("query quality metrics: %w", err)
	}
	defer rows.Close()

	var out []model.QualityMetrics
	for rows.Next() {
		m, err := scanQualityMetrics(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quality metrics: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
