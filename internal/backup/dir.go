package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirDestination keeps archive copies under a local directory.
type DirDestination struct {
	root string
}

// NewDirDestination creates a destination rooted at dir.
func NewDirDestination(dir string) *DirDestination {
	return &DirDestination{root: dir}
}

// Name returns the archive directory.
func (d *DirDestination) Name() string {
	return d.root
}

// Write stores data at root/key, creating parent directories.
func (d *DirDestination) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filePath := filepath.Join(d.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
