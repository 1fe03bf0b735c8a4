package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/contentflow/internal/config"
	"github.com/alfredjeanlab/contentflow/internal/ui"

	// Collectors register themselves with the collector registry.
	_ "github.com/alfredjeanlab/contentflow/internal/collector/social"
	_ "github.com/alfredjeanlab/contentflow/internal/collector/spotify"
	_ "github.com/alfredjeanlab/contentflow/internal/collector/streaming"
	_ "github.com/alfredjeanlab/contentflow/internal/collector/youtube"
)

var (
	jsonOutput bool
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "contentflow <command>",
	Short:         "Collect, clean and load content analytics",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.LogLevel = logLevel
		}
		l, err := newLogger(os.Stderr, c.LogLevel)
		if err != nil {
			return err
		}
		cfg, logger = c, l
		slog.SetDefault(l)
		if jsonOutput || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides CONTENTFLOW_LOG_LEVEL")

	rootCmd.AddGroup(
		&cobra.Group{ID: "pipeline", Title: "Pipeline:"},
		&cobra.Group{ID: "stages", Title: "Stages:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "tools", Title: "Tools:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Pipeline
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)

	// Stages
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(qualityCmd)
	rootCmd.AddCommand(transformCmd)

	// Views
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(watchCmd)

	// Tools
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(youtubeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
