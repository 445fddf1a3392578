// Package csvexport writes translation snapshots as CSV files.
package csvexport

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/entities"
)

const (
	fileLayout      = "translations_20060102_150405.csv"
	timestampLayout = "2006-01-02 15:04:05.000000"
)

// Exporter implements repositories.RecordExporter
type Exporter struct {
	dir    string
	logger *zap.Logger
}

// NewExporter writes files into dir, or the working directory when dir is empty
func NewExporter(dir string, logger *zap.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

// FileName returns the snapshot name for a session that ended at endedAt
func FileName(endedAt time.Time) string {
	return endedAt.Format(fileLayout)
}

// Export writes one row per record under a timestamp,original,translated header
func (e *Exporter) Export(ctx context.Context, records []entities.TranslationRecord, endedAt time.Time) (string, error) {
	if e.dir != "" {
		if err := os.MkdirAll(e.dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	path := filepath.Join(e.dir, FileName(endedAt))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "original", "translated"}); err != nil {
		return "", fmt.Errorf("failed to write export header: %w", err)
	}
	for _, r := range records {
		row := []string{r.Timestamp.Format(timestampLayout), r.Original, r.Translated}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export: %w", err)
	}

	e.logger.Info("Translations exported", zap.String("path", path), zap.Int("records", len(records)))
	return path, nil
}
