package model

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, msg string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) required(field, v string) {
	if strings.TrimSpace(v) == "" {
		e.add(field, "is required")
	}
}

func (e *ValidationError) nonNegative(field string, v int64) {
	if v < 0 {
		e.add(field, fmt.Sprintf("must not be negative, got %d", v))
	}
}

func (e *ValidationError) nonNegativePtr(field string, v *int64) {
	if v != nil {
		e.nonNegative(field, *v)
	}
}

func (e *ValidationError) ratio(field string, v *float64) {
	if v != nil && (*v < 0 || *v > 1) {
		e.add(field, fmt.Sprintf("must be between 0 and 1, got %g", *v))
	}
}

// timestamp accepts an empty value (loaded as NULL) or an RFC 3339 timestamp.
func (e *ValidationError) timestamp(field, v string) {
	if v == "" {
		return
	}
	if _, err := time.Parse(time.RFC3339, v); err != nil {
		e.add(field, fmt.Sprintf("invalid timestamp %q", v))
	}
}

// date accepts an empty value, YYYY, YYYY-MM or YYYY-MM-DD (Spotify reports
// release dates at varying precision).
func (e *ValidationError) date(field, v string) {
	if v == "" {
		return
	}
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if _, err := time.Parse(layout, v); err == nil {
			return
		}
	}
	e.add(field, fmt.Sprintf("invalid date %q", v))
}

func (e *ValidationError) err() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// cleanTags trims, drops empties, and removes duplicates while keeping order.
func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// nullTimestamp maps an empty timestamp string onto a SQL NULL.
func nullTimestamp(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func countNil(values ...any) int {
	n := 0
	for _, v := range values {
		switch x := v.(type) {
		case nil:
			n++
		case *int64:
			if x == nil {
				n++
			}
		case *float64:
			if x == nil {
				n++
			}
		case *string:
			if x == nil {
				n++
			}
		case string:
			if x == "" {
				n++
			}
		}
	}
	return n
}
