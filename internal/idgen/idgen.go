// Package idgen generates short, URL-safe run identifiers backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// RunPrefix starts every pipeline run ID.
const RunPrefix = "run-"

// alphabet is lower-case so run IDs are safe in object keys and file names.
const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// length is the number of random characters after the prefix.
const length = 12

// RunID returns a new pipeline run identifier such as "run-k3v9x0q2m7ab".
func RunID() (string, error) {
	return withPrefix(RunPrefix)
}

func withPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return prefix + id, nil
}
