package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/contentflow/internal/ui"
)

var (
	// Group and section headers such as "Stages:" or "Flags:".
	reHelpHeader = regexp.MustCompile(`(?m)^([A-Z][^\n]*:)\s*$`)

	// A command name indented by two spaces and followed by its description.
	reHelpCommand = regexp.MustCompile(`(?m)^(  )(\S+)(  )`)

	// The value type after a flag name, e.g. "--limit int".
	reHelpFlagType = regexp.MustCompile(`(--?\S+\s+)(string|int|duration|stringSlice)`)

	reHelpDefault = regexp.MustCompile(`\(default [^)]*\)`)
)

// colorizedHelpFunc renders cobra's usage text, colored when stdout is a
// color terminal.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	s = reHelpHeader.ReplaceAllStringFunc(s, func(m string) string {
		return ui.RenderAccent(strings.TrimSpace(m))
	})
	s = reHelpCommand.ReplaceAllStringFunc(s, func(m string) string {
		p := reHelpCommand.FindStringSubmatch(m)
		return p[1] + ui.RenderCommand(p[2]) + p[3]
	})
	s = reHelpFlagType.ReplaceAllStringFunc(s, func(m string) string {
		p := reHelpFlagType.FindStringSubmatch(m)
		return p[1] + ui.RenderMuted(p[2])
	})
	return reHelpDefault.ReplaceAllStringFunc(s, ui.RenderMuted)
}
