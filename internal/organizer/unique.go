package organizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// UniqueName returns a filename that is free inside destDir. If filename
// itself is free it is returned unchanged; otherwise a counter is
// inserted before the extension and incremented until a free name is
// found.
//
// Examples:
//   - "report.pdf" -> "report 1.pdf" (if report.pdf exists)
//   - "report.pdf" -> "report 2.pdf" (if report 1.pdf also exists)
//   - "README"     -> "README 1"     (no extension)
func UniqueName(destDir, filename string) string {
	if !FileExists(filepath.Join(destDir, filename)) {
		return filename
	}

	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s %d%s", base, n, ext)
		if !FileExists(filepath.Join(destDir, candidate)) {
			return candidate
		}
	}
}
