// Package history records the file operations DonLoad performs.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// PruneResult describes what a retention pass removed.
type PruneResult struct {
	Segments   []string // Filenames of the removed segments
	BytesFreed int64
}

// Prune removes rotated segments older than the retention window. The
// active log is never touched, so the most recent events always
// survive. When anything was removed a RETENTION_PRUNE event is
// recorded. Intended to run once at startup.
func (w *Writer) Prune() (*PruneResult, error) {
	result := &PruneResult{}
	if w.cfg.RetentionDays <= 0 {
		return result, nil
	}

	segments, err := Segments(w.cfg.Dir)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -w.cfg.RetentionDays)
	for _, name := range segments {
		path := filepath.Join(w.cfg.Dir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			return result, fmt.Errorf("failed to remove segment %s: %w", name, err)
		}
		result.Segments = append(result.Segments, name)
		result.BytesFreed += info.Size()
	}

	if len(result.Segments) > 0 {
		ev := Event{
			Type:   EventRetentionPrune,
			Status: StatusSuccess,
			Metadata: map[string]string{
				"segments":   strconv.Itoa(len(result.Segments)),
				"bytesFreed": strconv.FormatInt(result.BytesFreed, 10),
			},
		}
		if err := w.Record(ev); err != nil {
			return result, err
		}
	}

	return result, nil
}
