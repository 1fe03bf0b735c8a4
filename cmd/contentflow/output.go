package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/events"
	"github.com/alfredjeanlab/contentflow/internal/ledger"
	"github.com/alfredjeanlab/contentflow/internal/model"
	"github.com/alfredjeanlab/contentflow/internal/targets"
	"github.com/alfredjeanlab/contentflow/internal/ui"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

// stageDetail is the most useful thing to show about a stage result.
func stageDetail(res ledger.StageResult) string {
	switch {
	case res.Error != "":
		return res.Error
	case res.Reason != "":
		return res.Reason
	}
	return res.Output
}

func elapsed(res ledger.StageResult) string {
	if res.StartedAt.IsZero() || res.FinishedAt.IsZero() {
		return "-"
	}
	return res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond).String()
}

// printRun prints the stages of run in order, followed by any stage the
// order does not know.
func printRun(w io.Writer, run *ledger.Run, order []string) {
	fmt.Fprintf(w, "Run:      %s\n", run.ID)
	fmt.Fprintf(w, "Date:     %s\n", run.DS)
	fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.Format(timeLayout))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Finished: %s\n", run.FinishedAt.Format(timeLayout))
	}
	fmt.Fprintln(w)

	names := make([]string, 0, len(run.Stages))
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		seen[name] = true
		if _, ok := run.Stages[name]; ok {
			names = append(names, name)
		}
	}
	var extra []string
	for name := range run.Stages {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tSTATUS\tRECORDS\tTIME\tDETAIL")
	for _, name := range names {
		res := run.Stages[name]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", name, ui.RenderStatus(string(res.Status)), res.Records, elapsed(res), stageDetail(res))
	}
	tw.Flush()
}

func printStageResult(w io.Writer, stage string, res ledger.StageResult) {
	fmt.Fprintf(w, "%s %s", stage, ui.RenderStatus(string(res.Status)))
	if res.Records > 0 {
		fmt.Fprintf(w, " (%d records)", res.Records)
	}
	if d := stageDetail(res); d != "" {
		fmt.Fprintf(w, ": %s", d)
	}
	fmt.Fprintln(w)
}

// runStatus summarizes a run. Runs built from single stage commands are never
// finished and show as partial.
func runStatus(run *ledger.Run) string {
	switch {
	case stageFailed(run):
		return string(ledger.StatusFailed)
	case run.FinishedAt == nil && stageRunning(run):
		return string(ledger.StatusRunning)
	case run.FinishedAt == nil:
		return "partial"
	}
	return string(ledger.StatusSucceeded)
}

// stageFailed reports whether any stage of run failed.
func stageFailed(run *ledger.Run) bool {
	for _, res := range run.Stages {
		if res.Status == ledger.StatusFailed {
			return true
		}
	}
	return false
}

func stageRunning(run *ledger.Run) bool {
	for _, res := range run.Stages {
		if res.Status == ledger.StatusRunning {
			return true
		}
	}
	return false
}

func printRunList(w io.Writer, runs []*ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tRUN\tSTATUS\tSTARTED\tSTAGES")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", run.DS, run.ID, ui.RenderStatus(runStatus(run)), run.StartedAt.Format(timeLayout), len(run.Stages))
	}
	tw.Flush()
}

func printQuality(w io.Writer, metrics []model.QualityMetrics) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tTOTAL\tVALID\tDUPLICATES\tNULLS\tSCORE")
	for _, m := range metrics {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.1f\n", m.DataSource, m.TotalRecords, m.ValidRecords, m.DuplicateRecords, m.NullValues, m.QualityScore)
	}
	tw.Flush()
}

func printTargets(w io.Writer, entries []targets.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No targets configured.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Kind, e.ID)
	}
	tw.Flush()
}

// formatEvent renders one bus event as a single line.
func formatEvent(e events.Event) string {
	line := fmt.Sprintf("%s %s %s", ui.RenderMuted(e.At.Local().Format("15:04:05")), e.DS, ui.RenderAccent(e.Topic))
	if e.Stage != "" {
		line += " " + e.Stage
	}
	if e.Records > 0 {
		line += fmt.Sprintf(" records=%d", e.Records)
	}
	if e.Error != "" {
		line += " error=" + e.Error
	}
	return line
}

// writeJSONFile writes v as indented JSON, creating the parent directory.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}
