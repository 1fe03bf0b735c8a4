package main

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/contentflow/internal/backup"
	"github.com/alfredjeanlab/contentflow/internal/events"
	"github.com/alfredjeanlab/contentflow/internal/ledger"
	"github.com/alfredjeanlab/contentflow/internal/metrics"
	"github.com/alfredjeanlab/contentflow/internal/pipeline"
	"github.com/alfredjeanlab/contentflow/internal/targets"
	"github.com/alfredjeanlab/contentflow/internal/transform"
	"github.com/alfredjeanlab/contentflow/internal/warehouse"
	"github.com/alfredjeanlab/contentflow/internal/warehouse/postgres"
)

// app holds the collaborators a pipeline runner is built from.
type app struct {
	runner    *pipeline.Runner
	ledger    *ledger.Ledger
	warehouse warehouse.Warehouse // nil without CONTENTFLOW_DATABASE_URL
	publisher events.Publisher
	metrics   *metrics.Manager
}

// publisherHook lets a command supply the event publisher once the ledger and
// warehouse are open. Returning nil keeps the default.
type publisherHook func(a *app) events.Publisher

// openApp wires a runner from the loaded config. Events go to NATS when
// configured and are dropped otherwise, unless hook supplies a publisher.
func openApp(ctx context.Context, hook publisherHook) (*app, error) {
	a := &app{metrics: metrics.NewManager()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	t, err := targets.Load(cfg.TargetsPath())
	if err != nil {
		return nil, err
	}

	if a.ledger, err = ledger.Open(cfg.LedgerPath()); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL != "" {
		wh, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.warehouse = wh
	} else {
		logger.Warn("warehouse disabled (CONTENTFLOW_DATABASE_URL not set)")
	}

	if hook != nil {
		a.publisher = hook(a)
	}
	if a.publisher == nil {
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return nil, err
			}
			a.publisher = pub
			logger.Debug("events enabled", "nats_url", cfg.NATSURL)
		} else {
			a.publisher = &events.NoopPublisher{}
		}
	}

	dests, err := backupDestinations(ctx)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Config:    cfg,
		Targets:   t,
		Ledger:    a.ledger,
		Warehouse: a.warehouse,
		Backups:   dests,
		Publisher: a.publisher,
		Metrics:   a.metrics,
		Logger:    logger,
	}
	if cfg.DBTBinary != "" && cfg.DBTProjectDir != "" {
		opts.Transformer = transform.NewRunner(cfg.DBTBinary, cfg.DBTProjectDir, cfg.DBTProfilesDir, logger)
	}
	if a.runner, err = pipeline.New(opts); err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

// backupDestinations builds the configured archive destinations.
func backupDestinations(ctx context.Context) ([]backup.Destination, error) {
	var dests []backup.Destination
	if cfg.BackupS3Bucket != "" {
		s3Dest, err := backup.NewS3Destination(ctx, cfg.BackupS3Bucket, cfg.BackupS3Region, cfg.BackupS3Endpoint)
		if err != nil {
			return nil, err
		}
		dests = append(dests, s3Dest)
		logger.Debug("S3 backup enabled", "bucket", cfg.BackupS3Bucket)
	}
	if cfg.BackupDir != "" {
		dests = append(dests, backup.NewDirDestination(cfg.BackupDir))
		logger.Debug("local backup enabled", "dir", cfg.BackupDir)
	}
	return dests, nil
}

// Close releases everything openApp acquired.
func (a *app) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.warehouse != nil {
		errs = append(errs, a.warehouse.Close())
	}
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
	}
	return errors.Join(errs...)
}
