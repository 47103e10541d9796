package history

import (
	"fmt"
	"os"
	"testing"
	"time"
)

// TestReader_TypeFilter verifies only the requested event types come
// back.
func TestReader_TypeFilter(t *testing.T) {
	w, dir := newTestWriter(t)

	if err := w.RecordMove("/downloads/a.pdf", "/documents/a.pdf"); err != nil {
		t.Fatalf("RecordMove failed: %v", err)
	}
	if err := w.RecordTrash("/downloads/b.pdf", "b.pdf"); err != nil {
		t.Fatalf("RecordTrash failed: %v", err)
	}
	if err := w.RecordEvict("/downloads/c.pdf"); err != nil {
		t.Fatalf("RecordEvict failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events, err := NewReader(dir).Events(Filter{Types: []EventType{EventMove, EventTrash}})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventMove || events[1].Type != EventTrash {
		t.Errorf("Got types %s, %s", events[0].Type, events[1].Type)
	}
}

// TestReader_SinceFilter verifies events before the cutoff are
// dropped.
func TestReader_SinceFilter(t *testing.T) {
	w, dir := newTestWriter(t)

	// Explicit timestamps are preserved, so an old event can be
	// written directly.
	oldEvent := Event{
		Timestamp: time.Now().UTC().Add(-2 * time.Hour),
		Type:      EventMove,
		Status:    StatusSuccess,
		Path:      "/downloads/old.pdf",
	}
	if err := w.Record(oldEvent); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := w.RecordMove("/downloads/new.pdf", "/documents/new.pdf"); err != nil {
		t.Fatalf("RecordMove failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	since := time.Now().UTC().Add(-time.Hour)
	events, err := NewReader(dir).Events(Filter{Since: &since, Types: []EventType{EventMove}})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Path != "/downloads/new.pdf" {
		t.Errorf("Got %s, want the recent move", events[0].Path)
	}
}

// TestReader_LimitKeepsMostRecent verifies the limit trims from the
// front, not the back.
func TestReader_LimitKeepsMostRecent(t *testing.T) {
	w, dir := newTestWriter(t)

	for i := 0; i < 5; i++ {
		src := fmt.Sprintf("/downloads/file-%d.pdf", i)
		if err := w.RecordMove(src, "/documents/x.pdf"); err != nil {
			t.Fatalf("RecordMove failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events, err := NewReader(dir).Events(Filter{Types: []EventType{EventMove}, Limit: 2})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Path != "/downloads/file-3.pdf" || events[1].Path != "/downloads/file-4.pdf" {
		t.Errorf("Got %s, %s; want the last two moves", events[0].Path, events[1].Path)
	}
}

// TestReader_SkipsMalformedLines verifies a torn write does not make
// the rest of the log unreadable.
func TestReader_SkipsMalformedLines(t *testing.T) {
	w, dir := newTestWriter(t)
	if err := w.RecordMove("/downloads/a.pdf", "/documents/a.pdf"); err != nil {
		t.Fatalf("RecordMove failed: %v", err)
	}
	logPath := w.LogPath()
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("Failed to reopen log: %v", err)
	}
	if _, err := f.WriteString(`{"timestamp":"truncat` + "\n"); err != nil {
		t.Fatalf("Failed to append garbage: %v", err)
	}
	f.Close()

	events, err := NewReader(dir).Events(Filter{})
	if err != nil {
		t.Fatalf("Events should tolerate garbage lines: %v", err)
	}
	// SESSION_START, MOVE, SESSION_END survive; the garbage does not.
	if len(events) != 3 {
		t.Errorf("Expected 3 events, got %d", len(events))
	}
}

// TestReader_EmptyDirectory verifies a missing log yields no events
// and no error.
func TestReader_EmptyDirectory(t *testing.T) {
	events, err := NewReader(t.TempDir()).Events(Filter{})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected no events, got %d", len(events))
	}
}
