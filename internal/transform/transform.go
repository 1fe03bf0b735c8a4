// Package transform invokes the SQL transformation tool (dbt) after the
// warehouse has been loaded.
package transform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Steps are the dbt invocations of a run, in order.
var Steps = [][]string{
	{"run", "--models", "staging"},
	{"run", "--models", "marts"},
	{"test"},
}

// Runner executes dbt in a project directory.
type Runner struct {
	binary      string
	projectDir  string
	profilesDir string
	output      io.Writer
	log         *slog.Logger
}

// NewRunner creates a runner for the project at projectDir. An empty
// profilesDir leaves dbt's default lookup in place.
func NewRunner(binary, projectDir, profilesDir string, log *slog.Logger) *Runner {
	if binary == "" {
		binary = "dbt"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		binary:      binary,
		projectDir:  projectDir,
		profilesDir: profilesDir,
		output:      os.Stderr,
		log:         log,
	}
}

// Run executes every step and stops at the first failure.
func (r *Runner) Run(ctx context.Context) error {
	if _, err := exec.LookPath(r.binary); err != nil {
		return fmt.Errorf("find %s: %w", r.binary, err)
	}
	for _, step := range Steps {
		r.log.Info("running transformation", "step", strings.Join(step, " "), "project", r.projectDir)
		if err := r.dbt(ctx, step...); err != nil {
			return fmt.Errorf("dbt %s: %w", strings.Join(step, " "), err)
		}
	}
	return nil
}

func (r *Runner) dbt(ctx context.Context, args ...string) error {
	if r.profilesDir != "" {
		args = append(args, "--profiles-dir", r.profilesDir)
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = r.projectDir
	cmd.Stdout = r.output
	cmd.Stderr = io.MultiWriter(r.output, &stderr)
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(lastLine(stderr.String())); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
