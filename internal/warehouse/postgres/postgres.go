// Package postgres implements the warehouse.Warehouse interface backed by
// PostgreSQL (or a Postgres-compatible warehouse such as Redshift).
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/contentflow/internal/model"
	"github.com/alfredjeanlab/contentflow/internal/warehouse"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresWarehouse implements warehouse.Warehouse backed by a PostgreSQL database.
type PostgresWarehouse struct {
	db *sql.DB
}

// Compile-time check that PostgresWarehouse implements warehouse.Warehouse.
var _ warehouse.Warehouse = (*PostgresWarehouse)(nil)

// New opens a connection to the database at the given URL and configures
// the connection pool. Schema migrations are applied separately by Migrate.
func New(databaseURL string) (*PostgresWarehouse, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresWarehouse{db: db}, nil
}

// NewWithDB wraps an already opened database handle.
func NewWithDB(db *sql.DB) *PostgresWarehouse {
	return &PostgresWarehouse{db: db}
}

// Migrate applies pending schema migrations.
func (w *PostgresWarehouse) Migrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(w.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (w *PostgresWarehouse) Close() error {
	return w.db.Close()
}

// BulkInsert loads rows into table within a single transaction. Rows whose
// id already exists are skipped. It returns the number of inserted rows.
func (w *PostgresWarehouse) BulkInsert(ctx context.Context, table string, rows []model.Row) (int64, error) {
	var inserted int64
	err := w.RunInTransaction(ctx, func(tx warehouse.Warehouse) error {
		n, err := tx.BulkInsert(ctx, table, rows)
		inserted = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// StoreQualityMetrics upserts one metrics row per source and date.
func (w *PostgresWarehouse) StoreQualityMetrics(ctx context.Context, metrics []model.QualityMetrics) error {
	return w.RunInTransaction(ctx, func(tx warehouse.Warehouse) error {
		return tx.StoreQualityMetrics(ctx, metrics)
	})
}

// QualityMetrics returns the metrics stored for the run date ds.
func (w *PostgresWarehouse) QualityMetrics(ctx context.Context, ds string) ([]model.QualityMetrics, error) {
	return queryQualityMetrics(ctx, w.db, ds)
}

// RunInTransaction begins a database transaction, creates a txWarehouse that
// uses it, and calls fn. The transaction is committed when fn returns nil and
// rolled back otherwise.
func (w *PostgresWarehouse) RunInTransaction(ctx context.Context, fn func(tx warehouse.Warehouse) error) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txW := &txWarehouse{tx: tx}
	if err := fn(txW); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txWarehouse implements warehouse.Warehouse using a *sql.Tx.
type txWarehouse struct {
	tx *sql.Tx
}

// Compile-time check that txWarehouse implements warehouse.Warehouse.
var _ warehouse.Warehouse = (*txWarehouse)(nil)

func (w *txWarehouse) Migrate(ctx context.Context) error {
	return errors.New("migrate: not supported inside a transaction")
}

func (w *txWarehouse) BulkInsert(ctx context.Context, table string, rows []model.Row) (int64, error) {
	return queryBulkInsert(ctx, w.tx, table, rows)
}

func (w *txWarehouse) StoreQualityMetrics(ctx context.Context, metrics []model.QualityMetrics) error {
	for i := range metrics {
		if err := queryStoreQualityMetrics(ctx, w.tx, &metrics[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *txWarehouse) QualityMetrics(ctx context.Context, ds string) ([]model.QualityMetrics, error) {
	return queryQualityMetrics(ctx, w.tx, ds)
}

// RunInTransaction on a txWarehouse reuses the existing transaction (no nesting).
func (w *txWarehouse) RunInTransaction(ctx context.Context, fn func(tx warehouse.Warehouse) error) error {
	return fn(w)
}

// Close is a no-op for a txWarehouse; the parent manages the connection.
func (w *txWarehouse) Close() error {
	return nil
}
