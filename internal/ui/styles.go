// Package ui styles CLI output with ANSI 256 colors.
package ui

import "fmt"

// ANSI 256 color codes.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorOK     = 114 // green
	colorWarn   = 179 // amber
	colorFail   = 203 // red
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand returns s styled as a command name.
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderStatus colors a stage or run status: green when it succeeded, red
// when it failed and amber when it was skipped or is still running.
func RenderStatus(status string) string {
	switch status {
	case "succeeded", "ok":
		return paint(colorOK, status)
	case "failed":
		return paint(colorFail, status)
	case "skipped", "running":
		return paint(colorWarn, status)
	}
	return status
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// ColorEnabled reports whether Render functions emit escape codes.
func ColorEnabled() bool {
	return !noColor
}
