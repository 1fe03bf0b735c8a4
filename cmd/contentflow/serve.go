package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/contentflow/internal/events"
	"github.com/alfredjeanlab/contentflow/internal/pipeline"
	"github.com/alfredjeanlab/contentflow/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the pipeline on a schedule and serve its status over HTTP",
	GroupID: "pipeline",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		noSchedule, _ := cmd.Flags().GetBool("no-schedule")

		var statusServer *server.StatusServer
		a, err := openApp(ctx, func(a *app) events.Publisher {
			var quality server.QualityReader
			if a.warehouse != nil {
				quality = a.warehouse
			}
			statusServer = server.New(a.ledger, quality, a.metrics, logger)
			if cfg.NATSURL == "" {
				// No bus: runs publish straight to the event stream.
				return statusServer.Publisher()
			}
			return nil
		})
		if err != nil {
			return err
		}
		defer a.Close()

		if cfg.NATSURL != "" {
			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				return err
			}
			defer sub.Close()
			if err := statusServer.Forward(ctx, sub); err != nil {
				return err
			}
			logger.Info("event stream following NATS", "nats_url", cfg.NATSURL)
		}
		return serve(ctx, a, statusServer, noSchedule)
	},
}

func init() {
	serveCmd.Flags().Bool("no-schedule", false, "serve status only, without running the pipeline")
}

func serve(ctx context.Context, a *app, statusServer *server.StatusServer, noSchedule bool) error {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           statusServer.NewHTTPHandler(cfg.StatusToken),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var scheduler *pipeline.Scheduler
	if !noSchedule {
		scheduler = pipeline.NewScheduler(a.runner, cfg.ScheduleInterval, logger)
		scheduler.Start(ctx)
		logger.Info("scheduler started", "interval", cfg.ScheduleInterval)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errCh:
		logger.Error("HTTP server error", "err", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "err", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	return serveErr
}
