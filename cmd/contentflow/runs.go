package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/contentflow/internal/client"
	"github.com/alfredjeanlab/contentflow/internal/ledger"
	"github.com/alfredjeanlab/contentflow/internal/pipeline"
)

var runsCmd = &cobra.Command{
	Use:     "runs",
	Short:   "Inspect recorded pipeline runs",
	GroupID: "views",
	Long: `Inspect recorded pipeline runs. Runs are read from the local ledger, or
from a running "contentflow serve" when --url is given.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		base, _ := cmd.Flags().GetString("url")

		var (
			runs []*ledger.Run
			err  error
		)
		if base != "" {
			runs, err = newStatusClient(base).ListRuns(context.Background(), limit)
		} else {
			runs, err = withLedger(func(l *ledger.Ledger) ([]*ledger.Run, error) {
				return l.List(limit)
			})
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			if runs == nil {
				runs = []*ledger.Run{}
			}
			printJSON(runs)
			return nil
		}
		printRunList(os.Stdout, runs)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <date>",
	Short: "Show the stages of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds := args[0]
		if err := pipeline.ValidateDS(ds); err != nil {
			return err
		}
		base, _ := cmd.Flags().GetString("url")

		var (
			run *ledger.Run
			err error
		)
		if base != "" {
			run, err = newStatusClient(base).GetRun(context.Background(), ds)
			if client.IsNotFound(err) {
				err = ledger.ErrNotFound
			}
		} else {
			run, err = withLedger(func(l *ledger.Ledger) (*ledger.Run, error) {
				return l.Get(ds)
			})
		}
		if errors.Is(err, ledger.ErrNotFound) {
			return fmt.Errorf("no run recorded for %s", ds)
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(run)
			return nil
		}
		printRun(os.Stdout, run, stageOrder)
		if base != "" {
			return printRemoteQuality(base, ds)
		}
		return nil
	},
}

// printRemoteQuality prints the quality metrics a server holds for ds. A
// server without a warehouse has none to show.
func printRemoteQuality(base, ds string) error {
	metrics, err := newStatusClient(base).Quality(context.Background(), ds)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		return nil
	}
	if err != nil {
		return err
	}
	if len(metrics) > 0 {
		fmt.Println()
		printQuality(os.Stdout, metrics)
	}
	return nil
}

func withLedger[T any](fn func(l *ledger.Ledger) (T, error)) (T, error) {
	l, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		var zero T
		return zero, err
	}
	defer l.Close()
	return fn(l)
}

// stageOrder is the execution order used to sort stages for display.
var stageOrder = []string{
	pipeline.StageMigrate,
	pipeline.StageCollectYouTube,
	pipeline.StageCollectSpotify,
	pipeline.StageCollectSocial,
	pipeline.StageCollectStreaming,
	pipeline.StageProcess,
	pipeline.StageBackup,
	pipeline.StageLoad,
	pipeline.StageQuality,
	pipeline.StageTransform,
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs (0 for all)")
	runsCmd.PersistentFlags().String("url", "", "read runs from a contentflow server instead of the local ledger")
	runsCmd.AddCommand(runsListCmd, runsShowCmd)
}
