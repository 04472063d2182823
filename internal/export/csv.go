package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"finboard/internal/core"
)

// DirWriter stores reports as CSV files under a fixed directory.
type DirWriter struct {
	dir string
}

// NewDirWriter creates a writer rooted at dir, creating it if needed.
func NewDirWriter(dir string) (*DirWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &DirWriter{dir: dir}, nil
}

// WriteReport writes the report for the period and returns the file path.
// An existing report for the same period is overwritten.
func (w *DirWriter) WriteReport(ctx context.Context, period core.Period, rows [][]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(w.dir, FileName(period))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}

	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report file: %w", err)
	}

	return path, nil
}
