package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testDebounce = 30 * time.Millisecond

func newTestWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	w, err := New(Config{Dir: dir, Debounce: testDebounce})
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	return w
}

func waitEvent(t *testing.T, w *Watcher, timeout time.Duration) (Event, bool) {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev, true
	case <-time.After(timeout):
		return Event{}, false
	}
}

func drainQuiet(t *testing.T, w *Watcher, wait time.Duration) []Event {
	t.Helper()
	time.Sleep(wait)
	var events []Event
	for {
		select {
		case ev := <-w.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

// TestWatcher_NewFile_DeliversCreated verifies that a file landing in the
// watched directory produces a Created event.
func TestWatcher_NewFile_DeliversCreated(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir)
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()

	testFile := filepath.Join(tmpDir, "report.pdf")
	if err := os.WriteFile(testFile, []byte("content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	ev, ok := waitEvent(t, w, 2*time.Second)
	if !ok {
		t.Fatal("Expected a Created event, got none")
	}
	if ev.Kind != Created {
		t.Errorf("Expected kind %s, got %s", Created, ev.Kind)
	}
	if ev.Path != testFile {
		t.Errorf("Expected path %s, got %s", testFile, ev.Path)
	}
	if ev.Time.IsZero() {
		t.Error("Event time should be set")
	}
}

// TestWatcher_TempFilesIgnored verifies that in-progress downloads never
// produce events.
func TestWatcher_TempFilesIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir)
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()

	for _, name := range []string{"movie.crdownload", "data.part", "junk.tmp"} {
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte("partial"), 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}

	if events := drainQuiet(t, w, testDebounce+200*time.Millisecond); len(events) != 0 {
		t.Errorf("Expected no events for temp files, got %v", events)
	}
}

// TestWatcher_HiddenFilesIgnored verifies that dotfiles never produce
// events.
func TestWatcher_HiddenFilesIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir)
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(tmpDir, ".DS_Store")
	if err := os.WriteFile(path, []byte("meta"), 0644); err != nil {
		t.Fatalf("Failed to create hidden file: %v", err)
	}

	if events := drainQuiet(t, w, testDebounce+200*time.Millisecond); len(events) != 0 {
		t.Errorf("Expected no events for hidden files, got %v", events)
	}
}

// TestWatcher_ModifyDeliversModified verifies that appending to an
// existing file produces a Modified event.
func TestWatcher_ModifyDeliversModified(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "notes.txt")
	if err := os.WriteFile(testFile, []byte("before"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	w := newTestWatcher(t, tmpDir)
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()

	f, err := os.OpenFile(testFile, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("Failed to open test file: %v", err)
	}
	f.WriteString("after")
	f.Close()

	ev, ok := waitEvent(t, w, 2*time.Second)
	if !ok {
		t.Fatal("Expected a Modified event, got none")
	}
	if ev.Kind != Modified {
		t.Errorf("Expected kind %s, got %s", Modified, ev.Kind)
	}
	if ev.Path != testFile {
		t.Errorf("Expected path %s, got %s", testFile, ev.Path)
	}
}

// TestWatcher_RemoveDeliversRemoved verifies that deleting a file
// produces a Removed event.
func TestWatcher_RemoveDeliversRemoved(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "stale.zip")
	if err := os.WriteFile(testFile, []byte("content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	w := newTestWatcher(t, tmpDir)
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.Remove(testFile); err != nil {
		t.Fatalf("Failed to remove test file: %v", err)
	}

	ev, ok := waitEvent(t, w, 2*time.Second)
	if !ok {
		t.Fatal("Expected a Removed event, got none")
	}
	if ev.Kind != Removed {
		t.Errorf("Expected kind %s, got %s", Removed, ev.Kind)
	}
}

// TestWatcher_CreateThenWrite_CoalescesToCreated verifies that a create
// followed by rapid writes within the debounce window delivers a single
// Created event.
func TestWatcher_CreateThenWrite_CoalescesToCreated(t *testing.T) {
	tmpDir := t.TempDir()
	w, err := New(Config{Dir: tmpDir, Debounce: 150 * time.Millisecond})
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()

	testFile := filepath.Join(tmpDir, "streamed.bin")
	f, err := os.Create(testFile)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	for i := 0; i < 3; i++ {
		f.WriteString("chunk")
		time.Sleep(20 * time.Millisecond)
	}
	f.Close()

	ev, ok := waitEvent(t, w, 2*time.Second)
	if !ok {
		t.Fatal("Expected a coalesced event, got none")
	}
	if ev.Kind != Created {
		t.Errorf("Expected coalesced kind %s, got %s", Created, ev.Kind)
	}

	if extra := drainQuiet(t, w, 300*time.Millisecond); len(extra) != 0 {
		t.Errorf("Expected a single delivery, got %d extra events", len(extra))
	}
}

// TestWatcher_DirectoriesIgnored verifies that creating a subdirectory
// produces no event.
func TestWatcher_DirectoriesIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir)
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.Mkdir(filepath.Join(tmpDir, "subdir"), 0755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	if events := drainQuiet(t, w, testDebounce+200*time.Millisecond); len(events) != 0 {
		t.Errorf("Expected no events for directories, got %v", events)
	}
}

// TestWatcher_StartStop verifies clean start and stop transitions.
func TestWatcher_StartStop(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir)

	if w.IsRunning() {
		t.Error("Watcher should not be running before Start")
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	if !w.IsRunning() {
		t.Error("Watcher should be running after Start")
	}

	w.Stop()
	if w.IsRunning() {
		t.Error("Watcher should not be running after Stop")
	}
}

// TestWatcher_StartIdempotent verifies that a second Start on a running
// watcher is a harmless no-op.
func TestWatcher_StartIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir)

	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()

	if err := w.Start(); err != nil {
		t.Errorf("Second Start should be a no-op, got %v", err)
	}
	if !w.IsRunning() {
		t.Error("Watcher should still be running")
	}
}

// TestWatcher_StopIdempotent verifies that Stop is safe to call
// repeatedly and without a prior Start.
func TestWatcher_StopIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir)

	w.Stop()

	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	w.Stop()
	w.Stop()
}

// TestWatcher_Restart verifies that a stopped watcher can be started
// again and keeps delivering.
func TestWatcher_Restart(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir)

	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	w.Stop()

	if err := w.Start(); err != nil {
		t.Fatalf("Failed to restart watcher: %v", err)
	}
	defer w.Stop()

	testFile := filepath.Join(tmpDir, "after-restart.pdf")
	if err := os.WriteFile(testFile, []byte("content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	ev, ok := waitEvent(t, w, 2*time.Second)
	if !ok {
		t.Fatal("Expected an event after restart, got none")
	}
	if ev.Path != testFile {
		t.Errorf("Expected path %s, got %s", testFile, ev.Path)
	}
}

// TestWatcher_StartWithInvalidDirectory verifies that an inaccessible
// directory surfaces as a Start error for the caller to log.
func TestWatcher_StartWithInvalidDirectory(t *testing.T) {
	w, err := New(Config{Dir: "/nonexistent/directory/path", Debounce: testDebounce})
	if err != nil {
		t.Fatalf("New should defer directory checks to Start, got %v", err)
	}

	if err := w.Start(); err == nil {
		t.Error("Expected error when starting on a missing directory")
		w.Stop()
	}
	if w.IsRunning() {
		t.Error("Watcher should not be running after failed Start")
	}
}

func TestWatcher_EmptyDirRejected(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("Expected error for empty directory")
	}
}

// TestWatcher_DefaultDebounce verifies the default quiet period.
func TestWatcher_DefaultDebounce(t *testing.T) {
	if DefaultDebounce != 500*time.Millisecond {
		t.Errorf("Expected default debounce 500ms, got %v", DefaultDebounce)
	}

	w, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("Expected debounce %v, got %v", DefaultDebounce, w.debounce)
	}
}
