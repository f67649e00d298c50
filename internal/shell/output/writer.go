// Package output writes generated manifests to disk and renders run
// reports for the terminal. This is part of the Imperative Shell -
// handles I/O (filesystem writes, terminal output).
package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stackform/stackform/internal/core/manifest"
)

// Writer persists manifest sets to the filesystem.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a manifest writer.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// WriteStream renders the set as a single multi-document YAML stream.
func (w *Writer) WriteStream(dst io.Writer, set *manifest.Set) error {
	data, err := set.Render()
	if err != nil {
		return err
	}
	if _, err := dst.Write(data); err != nil {
		return fmt.Errorf("failed to write manifest stream: %w", err)
	}
	return nil
}

// WriteFile renders the set to a single file, creating parent
// directories as needed.
func (w *Writer) WriteFile(path string, set *manifest.Set) error {
	data, err := set.Render()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.logger.Info("wrote manifest file",
		"path", path,
		"resources", len(set.Resources),
	)
	return nil
}

// WriteDirectory renders one file per resource under dir.
func (w *Writer) WriteDirectory(dir string, set *manifest.Set) error {
	files, err := set.RenderEach()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for name, data := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.logger.Info("wrote manifest directory",
		"dir", dir,
		"files", len(files),
	)
	return nil
}
