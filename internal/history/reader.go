// Package history records the file operations DonLoad performs.
package history

import (
	"bufio"
	"fmt"
	"os"
	"time"
)

// Filter selects which events a Reader returns.
type Filter struct {
	Since *time.Time  // Only events at or after this time
	Types []EventType // Only these event types; empty means all
	Limit int         // Keep only the most recent N matches; 0 means all
}

// Reader reads events back from the history log, transparently
// spanning rotated segments and the active file.
type Reader struct {
	dir string
}

// NewReader creates a Reader over the given log directory.
func NewReader(dir string) *Reader {
	return &Reader{dir: dir}
}

// Events returns the events matching the filter in chronological
// order. Lines that fail to parse are skipped rather than failing the
// whole read, so a torn write never makes the history unreadable.
func (r *Reader) Events(filter Filter) ([]Event, error) {
	files, err := logFiles(r.dir)
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, file := range files {
		fileEvents, err := readEventsFromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		for _, ev := range fileEvents {
			if matches(ev, filter) {
				events = append(events, ev)
			}
		}
	}

	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}

	return events, nil
}

// matches checks one event against the filter criteria.
func matches(ev Event, filter Filter) bool {
	if filter.Since != nil && ev.Timestamp.Before(*filter.Since) {
		return false
	}

	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if ev.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// readEventsFromFile parses every valid line of one log file.
func readEventsFromFile(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)

	// Room for long paths and metadata on a single line.
	const maxLineSize = 1024 * 1024
	buf := make([]byte, maxLineSize)
	scanner.Buffer(buf, maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		ev, err := ParseLine(line)
		if err != nil {
			// Torn or corrupted line, move on.
			continue
		}
		events = append(events, *ev)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
