// Package history records the file operations DonLoad performs.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// segmentPrefix is shared by all rotated segment filenames.
const segmentPrefix = "donload-history-"

// rotatedName builds the filename for a rotated segment. The
// millisecond suffix keeps two rotations within the same second apart.
func rotatedName(now time.Time) string {
	return fmt.Sprintf("%s%s-%03d.jsonl", segmentPrefix, now.Format("20060102-150405"), now.Nanosecond()/1000000)
}

// Segments returns the rotated segment filenames in the log directory,
// oldest first. The active log is not included. The dated filenames
// sort chronologically as plain strings.
func Segments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, ".jsonl") && name != ActiveLogName {
			segments = append(segments, name)
		}
	}

	sort.Strings(segments)
	return segments, nil
}

// logFiles returns the full paths of all log files in chronological
// order: rotated segments first, then the active log if present.
func logFiles(dir string) ([]string, error) {
	segments, err := Segments(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, seg := range segments {
		files = append(files, filepath.Join(dir, seg))
	}

	active := filepath.Join(dir, ActiveLogName)
	if _, err := os.Stat(active); err == nil {
		files = append(files, active)
	}

	return files, nil
}
