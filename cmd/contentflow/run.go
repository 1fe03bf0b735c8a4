package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/contentflow/internal/pipeline"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runDate returns the --ds flag of cmd or today's date.
func runDate(cmd *cobra.Command, r *pipeline.Runner) (string, error) {
	ds, _ := cmd.Flags().GetString("ds")
	if ds == "" {
		return r.Today(), nil
	}
	return ds, pipeline.ValidateDS(ds)
}

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Run every pipeline stage for one date",
	GroupID: "pipeline",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ds, err := runDate(cmd, a.runner)
		if err != nil {
			return err
		}
		run, runErr := a.runner.Run(ctx, ds)
		if run != nil {
			if jsonOutput {
				printJSON(run)
			} else {
				printRun(os.Stdout, run, a.runner.Stages())
			}
		}
		if runErr != nil {
			return fmt.Errorf("run %s finished with failures", ds)
		}
		return nil
	},
}

// newStageCmd builds a command running a single stage.
func newStageCmd(use, short, stage string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		GroupID: "stages",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, stage)
		},
	}
	cmd.Flags().String("ds", "", "run date (YYYY-MM-DD, default today in UTC)")
	return cmd
}

func runStage(cmd *cobra.Command, stage string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ds, err := runDate(cmd, a.runner)
	if err != nil {
		return err
	}
	res, err := a.runner.RunStage(ctx, ds, stage)
	if jsonOutput {
		printJSON(res)
	} else {
		printStageResult(os.Stdout, stage, res)
	}
	return err
}

var (
	migrateCmd   = newStageCmd("migrate", "Apply warehouse schema migrations", pipeline.StageMigrate)
	processCmd   = newStageCmd("process", "Clean and validate collected data", pipeline.StageProcess)
	backupCmd    = newStageCmd("backup", "Archive the processed data file", pipeline.StageBackup)
	loadCmd      = newStageCmd("load", "Load processed data into the warehouse", pipeline.StageLoad)
	qualityCmd   = newStageCmd("quality", "Compute and store data quality metrics", pipeline.StageQuality)
	transformCmd = newStageCmd("transform", "Run the SQL transformations", pipeline.StageTransform)
)

var collectCmd = &cobra.Command{
	Use:       "collect <platform>",
	Short:     "Collect data from one platform",
	GroupID:   "stages",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"youtube", "spotify", "social_media", "streaming"},
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, err := pipeline.CollectStage(args[0])
		if err != nil {
			return err
		}
		return runStage(cmd, stage)
	},
}

func init() {
	runCmd.Flags().String("ds", "", "run date (YYYY-MM-DD, default today in UTC)")
	collectCmd.Flags().String("ds", "", "run date (YYYY-MM-DD, default today in UTC)")
}
