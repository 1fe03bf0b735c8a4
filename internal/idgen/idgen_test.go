package idgen

import (
	"regexp"
	"testing"
)

var runIDPattern = regexp.MustCompile(`^run-[a-z0-9]{12}$`)

func TestRunID_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		id, err := RunID()
		if err != nil {
			t.Fatalf("RunID() error on iteration %d: %v", i, err)
		}
		if !runIDPattern.MatchString(id) {
			t.Fatalf("RunID() = %q, does not match %s", id, runIDPattern)
		}
	}
}

func TestRunID_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := RunID()
		if err != nil {
			t.Fatalf("RunID() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}
