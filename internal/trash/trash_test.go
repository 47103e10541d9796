package trash

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"donload/internal/organizer"
)

// TestTrash_MovesFileAndWritesInfo verifies the freedesktop layout: the
// file lands under files/ and a parseable info record lands under info/.
func TestTrash_MovesFileAndWritesInfo(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "old download.pdf")
	if err := os.WriteFile(src, []byte("content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	name, err := Trash(src)
	if err != nil {
		t.Fatalf("Trash failed: %v", err)
	}
	if name != "old download.pdf" {
		t.Errorf("Stored name = %q, want original name", name)
	}

	if organizer.FileExists(src) {
		t.Error("Original file should be gone")
	}

	base, err := Dir()
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	trashed := filepath.Join(base, "files", name)
	if !organizer.FileExists(trashed) {
		t.Errorf("Expected trashed file at %s", trashed)
	}

	infoData, err := os.ReadFile(filepath.Join(base, "info", name+".trashinfo"))
	if err != nil {
		t.Fatalf("Failed to read info record: %v", err)
	}
	info := string(infoData)

	if !strings.HasPrefix(info, "[Trash Info]\n") {
		t.Errorf("Info record missing header: %q", info)
	}

	var gotPath, gotDate string
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(line, "Path="); ok {
			gotPath = v
		}
		if v, ok := strings.CutPrefix(line, "DeletionDate="); ok {
			gotDate = v
		}
	}

	unescaped, err := url.PathUnescape(gotPath)
	if err != nil {
		t.Fatalf("Path is not percent-encoded: %q", gotPath)
	}
	if unescaped != src {
		t.Errorf("Path = %q, want %q", unescaped, src)
	}
	if strings.Contains(gotPath, " ") {
		t.Errorf("Path should be escaped, got %q", gotPath)
	}

	if _, err := time.Parse("2006-01-02T15:04:05", gotDate); err != nil {
		t.Errorf("DeletionDate %q is not parseable: %v", gotDate, err)
	}
}

// TestTrash_CollisionRenamed verifies that a second file with the same
// name gets a counter suffix and a matching info record.
func TestTrash_CollisionRenamed(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	srcDir := t.TempDir()
	for i := 0; i < 2; i++ {
		src := filepath.Join(srcDir, "report.pdf")
		if err := os.WriteFile(src, []byte("content"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		name, err := Trash(src)
		if err != nil {
			t.Fatalf("Trash %d failed: %v", i, err)
		}
		if i == 1 && name != "report 1.pdf" {
			t.Errorf("Second trashed name = %q, want %q", name, "report 1.pdf")
		}
	}

	base, _ := Dir()
	for _, name := range []string{"report.pdf", "report 1.pdf"} {
		if !organizer.FileExists(filepath.Join(base, "files", name)) {
			t.Errorf("Expected %s under files/", name)
		}
		if !organizer.FileExists(filepath.Join(base, "info", name+".trashinfo")) {
			t.Errorf("Expected info record for %s", name)
		}
	}
}

// TestTrash_MissingSource verifies the typed error and that no stray
// info record is left behind.
func TestTrash_MissingSource(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	_, err := Trash(filepath.Join(t.TempDir(), "gone.pdf"))
	if err == nil {
		t.Fatal("Expected error for missing source")
	}

	var moveErr *organizer.MoveError
	if !errors.As(err, &moveErr) || moveErr.Type != organizer.SourceNotFound {
		t.Errorf("Expected SourceNotFound, got %v", err)
	}

	base, _ := Dir()
	entries, _ := os.ReadDir(filepath.Join(base, "info"))
	if len(entries) != 0 {
		t.Errorf("Expected no info records, found %d", len(entries))
	}
}

func TestDir_HonorsXDGDataHome(t *testing.T) {
	custom := t.TempDir()
	t.Setenv("XDG_DATA_HOME", custom)

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	if dir != filepath.Join(custom, "Trash") {
		t.Errorf("Dir = %q, want %q", dir, filepath.Join(custom, "Trash"))
	}
}
