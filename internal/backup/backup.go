// Package backup copies processed run output to archive destinations.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
)

// Destination is an archive target (S3, local directory).
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	// Write stores data under key, replacing any previous object.
	Write(ctx context.Context, key string, data []byte) error
}

// ProcessedKey returns the object key of a run's processed file.
func ProcessedKey(ds string) string {
	return path.Join("content-data", ds, "processed_content_data.json")
}

// Upload writes data to every destination. A failing destination does not
// stop the others; the returned error joins every failure.
func Upload(ctx context.Context, log *slog.Logger, dests []Destination, key string, data []byte) error {
	if log == nil {
		log = slog.Default()
	}
	var errs []error
	for _, d := range dests {
		if err := d.Write(ctx, key, data); err != nil {
			log.Error("backup destination write failed", "destination", d.Name(), "key", key, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
			continue
		}
		log.Info("backup written", "destination", d.Name(), "key", key, "bytes", len(data))
	}
	return errors.Join(errs...)
}
