// Package trash moves files into the user trash instead of unlinking them.
//
// Layout and info records follow the freedesktop.org trash specification:
// files go under Trash/files and each gets a companion
// Trash/info/<name>.trashinfo holding the original path and deletion date.
package trash

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"donload/internal/organizer"
)

const infoSuffix = ".trashinfo"

// Dir returns the user trash directory, honoring XDG_DATA_HOME.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "Trash"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "Trash"), nil
}

// Trash moves path into the user trash and writes its info record.
// It returns the name the file was stored under, which differs from the
// original only when the trash already held an entry with that name.
func Trash(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return "", &organizer.MoveError{Type: organizer.SourceNotFound, Path: abs, Err: err}
		}
		return "", err
	}

	base, err := Dir()
	if err != nil {
		return "", err
	}
	filesDir := filepath.Join(base, "files")
	infoDir := filepath.Join(base, "info")
	for _, dir := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", err
		}
	}

	name, info, err := reserve(filesDir, infoDir, filepath.Base(abs))
	if err != nil {
		return "", err
	}

	if err := writeInfo(info, abs, time.Now()); err != nil {
		info.Close()
		os.Remove(info.Name())
		return "", err
	}
	if err := info.Close(); err != nil {
		os.Remove(info.Name())
		return "", err
	}

	if err := organizer.MoveTo(abs, filepath.Join(filesDir, name)); err != nil {
		os.Remove(filepath.Join(infoDir, name+infoSuffix))
		return "", err
	}
	return name, nil
}

// reserve picks a free name in the trash and claims it by exclusively
// creating the info file, per the freedesktop.org spec. Collisions bump
// a counter before the extension until a claim succeeds.
func reserve(filesDir, infoDir, name string) (string, *os.File, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for n := 1; ; n++ {
		if !organizer.FileExists(filepath.Join(filesDir, candidate)) {
			f, err := os.OpenFile(
				filepath.Join(infoDir, candidate+infoSuffix),
				os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600,
			)
			if err == nil {
				return candidate, f, nil
			}
			if !os.IsExist(err) {
				return "", nil, err
			}
		}
		candidate = fmt.Sprintf("%s %d%s", base, n, ext)
	}
}

func writeInfo(f *os.File, originalPath string, deletedAt time.Time) error {
	escaped := (&url.URL{Path: originalPath}).EscapedPath()
	_, err := fmt.Fprintf(f, "[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		escaped, deletedAt.Format("2006-01-02T15:04:05"))
	return err
}
