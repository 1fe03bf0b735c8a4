// Package warehouse defines the interface of the analytics warehouse the
// pipeline loads into.
package warehouse

import (
	"context"

	"github.com/alfredjeanlab/contentflow/internal/model"
)

// Warehouse defines the persistence interface for collected analytics.
type Warehouse interface {
	// Schema
	Migrate(ctx context.Context) error

	// Raw data
	BulkInsert(ctx context.Context, table string, rows []model.Row) (int64, error)

	// Quality metrics
	StoreQualityMetrics(ctx context.Context, metrics []model.QualityMetrics) error
	QualityMetrics(ctx context.Context, ds string) ([]model.QualityMetrics, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Warehouse) error) error

	// Lifecycle
	Close() error
}

// RawTables lists the tables BulkInsert accepts, one per source.
var RawTables = map[string]bool{
	model.SourceYouTube.Table():     true,
	model.SourceSpotify.Table():     true,
	model.SourceSocialMedia.Table(): true,
	model.SourceStreaming.Table():   true,
}
