// Package history records the file operations DonLoad performs.
package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActiveLogName is the filename of the log currently being appended to.
const ActiveLogName = "donload-history.jsonl"

// Config holds the history log settings.
type Config struct {
	Dir           string // Directory holding the active log and rotated segments
	RotationSize  int64  // Rotate the active log once it reaches this many bytes; <=0 disables
	RetentionDays int    // Prune rotated segments older than this many days; <=0 keeps everything
}

// DefaultConfig returns the history settings used when the
// configuration file does not override them.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:           dir,
		RotationSize:  5 * 1024 * 1024, // 5MB
		RetentionDays: 90,
	}
}

// Writer appends events to the history log. It is safe for concurrent
// use, flushes every event to disk, and rotates the log when it grows
// past the configured size.
type Writer struct {
	mu      sync.Mutex
	file    *os.File
	w       *bufio.Writer
	path    string
	cfg     Config
	session SessionID
}

// NewWriter opens the history log for appending, creating the log
// directory if needed, and records a SESSION_START event under a fresh
// session ID.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("history: log directory not set")
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	path := filepath.Join(cfg.Dir, ActiveLogName)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open history log: %w", err)
	}

	w := &Writer{
		file:    file,
		w:       bufio.NewWriter(file),
		path:    path,
		cfg:     cfg,
		session: SessionID(uuid.New().String()),
	}

	if err := w.Record(Event{Type: EventSessionStart, Status: StatusSuccess}); err != nil {
		file.Close()
		return nil, err
	}

	return w, nil
}

// Session returns the session ID stamped on events from this writer.
func (w *Writer) Session() SessionID {
	return w.session
}

// LogPath returns the path of the active log file.
func (w *Writer) LogPath() string {
	return w.path
}

// Record appends a single event to the log. A zero timestamp is filled
// with the current time and an empty session ID with the writer's own.
// The event is flushed and synced before Record returns.
func (w *Writer) Record(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("history: writer is closed")
	}

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.SessionID == "" {
		ev.SessionID = w.session
	}

	return w.recordLocked(ev)
}

// recordLocked writes an event while holding the lock and checks
// whether the log needs rotating afterwards.
func (w *Writer) recordLocked(ev Event) error {
	if err := w.writeLineLocked(ev); err != nil {
		return err
	}

	// Rotation events themselves must not trigger another rotation.
	if ev.Type != EventRotation {
		if err := w.rotateIfNeededLocked(); err != nil {
			return fmt.Errorf("failed to rotate history log: %w", err)
		}
	}

	return nil
}

// writeLineLocked marshals the event, appends it as one line, and
// flushes through to disk.
func (w *Writer) writeLineLocked(ev Event) error {
	data, err := ev.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal history event: %w", err)
	}

	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("failed to write history event: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write history event: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush history event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync history event: %w", err)
	}

	return nil
}

// rotateIfNeededLocked renames the active log to a dated segment once
// it reaches the configured size, after recording a ROTATION event so
// the cut is visible in the segment itself.
func (w *Writer) rotateIfNeededLocked() error {
	if w.cfg.RotationSize <= 0 {
		return nil
	}

	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("failed to stat history log: %w", err)
	}
	if info.Size() < w.cfg.RotationSize {
		return nil
	}

	rotated := rotatedName(time.Now())
	ev := Event{
		Timestamp: time.Now().UTC(),
		SessionID: w.session,
		Type:      EventRotation,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"previousFile": ActiveLogName,
			"newFile":      rotated,
		},
	}
	if err := w.writeLineLocked(ev); err != nil {
		return err
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close log for rotation: %w", err)
	}
	if err := os.Rename(w.path, filepath.Join(w.cfg.Dir, rotated)); err != nil {
		return fmt.Errorf("failed to rename log during rotation: %w", err)
	}

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open new log after rotation: %w", err)
	}

	w.file = file
	w.w = bufio.NewWriter(file)
	return nil
}

// RecordScan records a completed directory scan and how many files it
// found.
func (w *Writer) RecordScan(dir string, count int) error {
	return w.Record(Event{
		Type:   EventScan,
		Status: StatusSuccess,
		Path:   dir,
		Metadata: map[string]string{
			"files": strconv.Itoa(count),
		},
	})
}

// RecordMove records a file moved out of the watched directory.
func (w *Writer) RecordMove(source, dest string) error {
	return w.Record(Event{
		Type:        EventMove,
		Status:      StatusSuccess,
		Path:        source,
		Destination: dest,
	})
}

// RecordTrash records a file moved to the trash and the name it was
// stored under there.
func (w *Writer) RecordTrash(source, storedAs string) error {
	return w.Record(Event{
		Type:        EventTrash,
		Status:      StatusSuccess,
		Path:        source,
		Destination: storedAs,
	})
}

// RecordEvict records a file dropped from the tracked set without
// touching the file itself.
func (w *Writer) RecordEvict(path string) error {
	return w.Record(Event{
		Type:   EventEvict,
		Status: StatusSuccess,
		Path:   path,
	})
}

// RecordReconcile records a reconciliation pass that dropped stale
// entries whose backing files had disappeared.
func (w *Writer) RecordReconcile(dir string, removed int) error {
	return w.Record(Event{
		Type:   EventReconcile,
		Status: StatusSuccess,
		Path:   dir,
		Metadata: map[string]string{
			"removed": strconv.Itoa(removed),
		},
	})
}

// RecordFailure records a failed operation of the given type.
func (w *Writer) RecordFailure(op EventType, path string, opErr error) error {
	ev := Event{
		Type:   op,
		Status: StatusFailure,
		Path:   path,
	}
	if opErr != nil {
		ev.Detail = opErr.Error()
	}
	return w.Record(ev)
}

// Close records a SESSION_END event and closes the log. Closing an
// already closed writer is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	end := Event{
		Timestamp: time.Now().UTC(),
		SessionID: w.session,
		Type:      EventSessionEnd,
		Status:    StatusSuccess,
	}
	if err := w.writeLineLocked(end); err != nil {
		w.file.Close()
		w.file = nil
		return err
	}

	err := w.file.Close()
	w.file = nil
	if err != nil {
		return fmt.Errorf("failed to close history log: %w", err)
	}
	return nil
}
