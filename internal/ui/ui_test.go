package ui

import (
	"strings"
	"testing"
)

func TestRenderStatus(t *testing.T) {
	saved := noColor
	t.Cleanup(func() { noColor = saved })
	noColor = false

	for _, tc := range []struct {
		status string
		code   string
	}{
		{"succeeded", "38;5;114m"},
		{"failed", "38;5;203m"},
		{"skipped", "38;5;179m"},
	} {
		if got := RenderStatus(tc.status); !strings.Contains(got, tc.code) || !strings.Contains(got, tc.status) {
			t.Errorf("RenderStatus(%q) = %q", tc.status, got)
		}
	}
	if got := RenderStatus("pending"); got != "pending" {
		t.Errorf("unknown status should not be colored: %q", got)
	}
}

func TestForceNoColor(t *testing.T) {
	saved := noColor
	t.Cleanup(func() { noColor = saved })

	ForceNoColor()
	if ColorEnabled() {
		t.Fatal("color should be disabled")
	}
	if got := RenderAccent("x"); got != "x" {
		t.Errorf("RenderAccent = %q", got)
	}
	if got := RenderStatus("failed"); got != "failed" {
		t.Errorf("RenderStatus = %q", got)
	}
}

func TestShouldUseColor_Env(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if ShouldUseColor() {
		t.Error("NO_COLOR should disable color")
	}
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "1")
	if !ShouldUseColor() {
		t.Error("CLICOLOR_FORCE should enable color")
	}
	t.Setenv("CLICOLOR_FORCE", "")
	t.Setenv("CLICOLOR", "0")
	if ShouldUseColor() {
		t.Error("CLICOLOR=0 should disable color")
	}
}

func TestColorFromEnv(t *testing.T) {
	for _, tc := range []struct {
		name    string
		env     map[string]string
		decided bool
		color   bool
	}{
		{"nothing set", nil, false, false},
		{"no color", map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, true, false},
		{"forced", map[string]string{"CLICOLOR_FORCE": " 1 ", "TERM": "dumb"}, true, true},
		{"clicolor off", map[string]string{"CLICOLOR": "0"}, true, false},
		{"dumb terminal", map[string]string{"TERM": "dumb"}, true, false},
		{"ordinary terminal", map[string]string{"TERM": "xterm-256color", "CLICOLOR": "1"}, false, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			decided, color := colorFromEnv(func(k string) string { return tc.env[k] })
			if decided != tc.decided || color != tc.color {
				t.Errorf("colorFromEnv = (%v, %v), want (%v, %v)", decided, color, tc.decided, tc.color)
			}
		})
	}
}
