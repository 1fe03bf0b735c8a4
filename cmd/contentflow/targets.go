package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/contentflow/internal/collector"
	"github.com/alfredjeanlab/contentflow/internal/targets"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Manage the channels, artists and accounts to collect",
	Long: `Manage the targets file (CONTENTFLOW_TARGETS_FILE, default
<data_dir>/targets.toml) listing what every collection gathers.

Kinds: ` + strings.Join(targets.Kinds(), ", "),
	GroupID: "tools",
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured targets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := targets.Load(cfg.TargetsPath())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(t)
			return nil
		}
		printTargets(os.Stdout, targets.Entries(t))
		return nil
	},
}

var targetsAddCmd = &cobra.Command{
	Use:   "add <kind> <id>...",
	Short: "Add targets of one kind",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editTargets(args[0], args[1:], targets.Add, "Added", "already present")
	},
}

var targetsRemoveCmd = &cobra.Command{
	Use:   "remove <kind> <id>...",
	Short: "Remove targets of one kind",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editTargets(args[0], args[1:], targets.Remove, "Removed", "not present")
	},
}

type targetEdit func(t *collector.Targets, kind, id string) (bool, error)

// editTargets applies edit to every id and saves the file when anything
// changed.
func editTargets(kind string, ids []string, edit targetEdit, done, unchanged string) error {
	path := cfg.TargetsPath()
	t, err := targets.Load(path)
	if err != nil {
		return err
	}
	changed := false
	for _, id := range ids {
		ok, err := edit(&t, kind, id)
		if err != nil {
			return err
		}
		if ok {
			changed = true
			fmt.Printf("%s %s %s\n", done, kind, id)
		} else {
			fmt.Printf("%s %s %s\n", kind, id, unchanged)
		}
	}
	if !changed {
		return nil
	}
	return targets.Save(path, t)
}

func init() {
	targetsCmd.AddCommand(targetsListCmd, targetsAddCmd, targetsRemoveCmd)
}
