package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/events"
	"github.com/alfredjeanlab/contentflow/internal/ledger"
	"github.com/alfredjeanlab/contentflow/internal/model"
	"github.com/alfredjeanlab/contentflow/internal/targets"
	"github.com/alfredjeanlab/contentflow/internal/ui"
)

func TestMain(m *testing.M) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	ui.ForceNoColor()
	os.Exit(m.Run())
}

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	} {
		got, err := parseLevel(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("parseLevel(%q) = (%v, %v), want %v", tc.in, got, err, tc.want)
		}
	}
	if _, err := parseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "warn")
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hidden")
	l.Warn("shown", "stage", "load")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "stage=load") {
		t.Errorf("log output = %q", out)
	}
}

func sampleRun() *ledger.Run {
	start := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	done := start.Add(time.Minute)
	return &ledger.Run{
		ID:         "run-abc123def456",
		DS:         "2024-03-01",
		StartedAt:  start,
		FinishedAt: &done,
		Stages: map[string]ledger.StageResult{
			"load":            {Status: ledger.StatusFailed, Error: "connection refused", StartedAt: start, FinishedAt: start.Add(2 * time.Second)},
			"collect_youtube": {Status: ledger.StatusSucceeded, Records: 12, Output: "data/youtube_data_2024-03-01.json", StartedAt: start, FinishedAt: start.Add(time.Second)},
			"collect_social":  {Status: ledger.StatusSkipped, Reason: "no social media tokens configured"},
			"custom":          {Status: ledger.StatusSucceeded},
		},
	}
}

func TestPrintRun(t *testing.T) {
	var buf bytes.Buffer
	printRun(&buf, sampleRun(), stageOrder)
	out := buf.String()

	for _, want := range []string{
		"Run:      run-abc123def456",
		"youtube_data_2024-03-01.json",
		"no social media tokens configured",
		"connection refused",
		"1s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	yt := strings.Index(out, "collect_youtube")
	social := strings.Index(out, "collect_social")
	load := strings.Index(out, "load ")
	custom := strings.Index(out, "custom")
	if yt >= social || social >= load || load >= custom {
		t.Errorf("stages out of order:\n%s", out)
	}
}

func TestRunStatus(t *testing.T) {
	run := sampleRun()
	if got := runStatus(run); got != "failed" {
		t.Errorf("runStatus = %q, want failed", got)
	}
	delete(run.Stages, "load")
	if got := runStatus(run); got != "succeeded" {
		t.Errorf("runStatus = %q, want succeeded", got)
	}
	run.FinishedAt = nil
	if got := runStatus(run); got != "partial" {
		t.Errorf("runStatus = %q, want partial", got)
	}
	run.Stages["process"] = ledger.StageResult{Status: ledger.StatusRunning}
	if got := runStatus(run); got != "running" {
		t.Errorf("runStatus = %q, want running", got)
	}
}

func TestPrintRunList(t *testing.T) {
	var buf bytes.Buffer
	printRunList(&buf, nil)
	if !strings.Contains(buf.String(), "No runs recorded.") {
		t.Errorf("empty list output = %q", buf.String())
	}

	buf.Reset()
	printRunList(&buf, []*ledger.Run{sampleRun()})
	if !strings.Contains(buf.String(), "2024-03-01") || !strings.Contains(buf.String(), "failed") {
		t.Errorf("list output = %q", buf.String())
	}
}

func TestPrintStageResult(t *testing.T) {
	var buf bytes.Buffer
	printStageResult(&buf, "process", ledger.StageResult{Status: ledger.StatusSucceeded, Records: 7, Output: "data/p.json"})
	if got := buf.String(); got != "process succeeded (7 records): data/p.json\n" {
		t.Errorf("output = %q", got)
	}
}

func TestPrintTargets(t *testing.T) {
	var buf bytes.Buffer
	printTargets(&buf, []targets.Entry{{Kind: targets.KindYouTubeChannel, ID: "UC1"}})
	if !strings.Contains(buf.String(), "youtube_channel  UC1") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintQuality(t *testing.T) {
	var buf bytes.Buffer
	printQuality(&buf, []model.QualityMetrics{{
		DataSource: model.SourceYouTube, TotalRecords: 4, ValidRecords: 3, DuplicateRecords: 1, QualityScore: 72.5,
	}})
	out := buf.String()
	if !strings.HasPrefix(out, "SOURCE") || !strings.Contains(out, "youtube") || !strings.Contains(out, "72.5") {
		t.Errorf("output = %q", out)
	}
}

func TestFormatEvent(t *testing.T) {
	e := events.New(events.TopicStageFailed, "2024-03-01", "run-abc")
	e.Stage = "load"
	e.Error = "disk full"
	line := formatEvent(e)
	for _, want := range []string{"2024-03-01", events.TopicStageFailed, "load", "error=disk full"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("a very long video title", 10); got != "a very ..." {
		t.Errorf("truncate = %q", got)
	}
}

func TestColorizeHelp(t *testing.T) {
	in := "Stages:\n  collect     Collect data\n\nFlags:\n      --ds string   run date (default \"today\")\n"
	out := colorizeHelp(in)
	// Color is forced off, so styling is a no-op.
	if out != in {
		t.Errorf("colorizeHelp changed text without color:\n%q", out)
	}
}

func TestStageCommandsRegistered(t *testing.T) {
	want := []string{"run", "serve", "migrate", "collect", "process", "backup", "load", "quality", "transform", "runs", "watch", "targets", "youtube"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	for _, sub := range []string{"trending", "search", "comments", "categories", "sections", "playlists", "dump"} {
		if cmd, _, err := rootCmd.Find([]string{"youtube", sub}); err != nil || cmd.Name() != sub {
			t.Errorf("youtube %s not registered", sub)
		}
	}
}
