//go:build !linux

package metadata

import (
	"os"
	"time"
)

func readSources(path string, info os.FileInfo) sources {
	var src sources
	if info != nil && !info.ModTime().IsZero() {
		src.mod = info.ModTime()
	}
	return src
}

// StampAdded is a no-op on platforms without extended attribute support
// wired in; derivation falls back to modification time on the next scan.
func StampAdded(path string, t time.Time) error {
	return nil
}
