// Package history records the file operations DonLoad performs.
package history

import (
	"path/filepath"
	"time"
)

// Stats aggregates operation counts across the whole history log.
type Stats struct {
	Moves         int            // Successful moves
	Trashes       int            // Successful trashes
	Evictions     int            // Cache evictions
	Failures      int            // Failed operations of any type
	ByDestination map[string]int // Successful moves per destination directory
	First         time.Time      // Timestamp of the earliest counted event
	Last          time.Time      // Timestamp of the latest counted event
}

// Collect reads the history log under dir and aggregates operation
// statistics. When since is non-nil, only events from that time on are
// counted.
func Collect(dir string, since *time.Time) (*Stats, error) {
	reader := NewReader(dir)
	events, err := reader.Events(Filter{Since: since})
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ByDestination: make(map[string]int),
	}

	for _, ev := range events {
		switch ev.Type {
		case EventMove, EventTrash, EventEvict:
		default:
			continue
		}

		if stats.First.IsZero() || ev.Timestamp.Before(stats.First) {
			stats.First = ev.Timestamp
		}
		if ev.Timestamp.After(stats.Last) {
			stats.Last = ev.Timestamp
		}

		if ev.Status == StatusFailure {
			stats.Failures++
			continue
		}

		switch ev.Type {
		case EventMove:
			stats.Moves++
			if ev.Destination != "" {
				stats.ByDestination[filepath.Dir(ev.Destination)]++
			}
		case EventTrash:
			stats.Trashes++
		case EventEvict:
			stats.Evictions++
		}
	}

	return stats, nil
}
