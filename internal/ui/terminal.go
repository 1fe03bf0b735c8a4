package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether tables and help written to stdout get ANSI
// colors.
func ShouldUseColor() bool {
	if decided, color := colorFromEnv(os.Getenv); decided {
		return color
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// colorFromEnv applies NO_COLOR, CLICOLOR_FORCE, CLICOLOR and TERM=dumb in
// that order. decided is false when none of them settles it.
func colorFromEnv(getenv func(string) string) (decided, color bool) {
	// https://no-color.org: any non-empty value disables color.
	if getenv("NO_COLOR") != "" {
		return true, false
	}
	if strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1" {
		return true, true
	}
	if strings.TrimSpace(getenv("CLICOLOR")) == "0" {
		return true, false
	}
	if getenv("TERM") == "dumb" {
		return true, false
	}
	return false, false
}
