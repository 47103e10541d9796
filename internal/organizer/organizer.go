// Package organizer relocates tracked files out of the downloads directory.
package organizer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MoveErrorType represents the type of move error.
type MoveErrorType string

const (
	// SourceNotFound indicates the source file does not exist.
	SourceNotFound MoveErrorType = "SOURCE_NOT_FOUND"
	// DestinationExists indicates a file already exists at the exact
	// destination path.
	DestinationExists MoveErrorType = "DESTINATION_EXISTS"
	// PermissionDenied indicates insufficient permissions for the operation.
	PermissionDenied MoveErrorType = "PERMISSION_DENIED"
)

// MoveError represents an error that occurred during file movement.
type MoveError struct {
	Type MoveErrorType
	Path string
	Err  error
}

func (e *MoveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Path)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// MoveResult represents the result of a successful move.
type MoveResult struct {
	SourcePath      string
	DestinationPath string
	FinalName       string
	Renamed         bool // true when a collision counter was applied
}

// Move relocates src into destDir, keeping its name when possible and
// resolving collisions with an incrementing counter before the extension.
// The destination directory is created if it does not exist.
func Move(src, destDir string) (*MoveResult, error) {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil, &MoveError{Type: SourceNotFound, Path: src, Err: err}
		}
		if os.IsPermission(err) {
			return nil, &MoveError{Type: PermissionDenied, Path: src, Err: err}
		}
		return nil, err
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		if os.IsPermission(err) {
			return nil, &MoveError{Type: PermissionDenied, Path: destDir, Err: err}
		}
		return nil, err
	}

	name := filepath.Base(src)
	finalName := UniqueName(destDir, name)
	destPath := filepath.Join(destDir, finalName)

	if err := MoveTo(src, destPath); err != nil {
		return nil, err
	}

	return &MoveResult{
		SourcePath:      src,
		DestinationPath: destPath,
		FinalName:       finalName,
		Renamed:         finalName != name,
	}, nil
}

// MoveTo relocates src to the exact path dst. It refuses to overwrite an
// existing destination. A failed rename falls back to copy and delete for
// cross-device moves.
func MoveTo(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return &MoveError{Type: SourceNotFound, Path: src, Err: err}
		}
		if os.IsPermission(err) {
			return &MoveError{Type: PermissionDenied, Path: src, Err: err}
		}
		return err
	}
	if FileExists(dst) {
		return &MoveError{Type: DestinationExists, Path: dst}
	}

	if err := os.Rename(src, dst); err != nil {
		if os.IsPermission(err) {
			return &MoveError{Type: PermissionDenied, Path: src, Err: err}
		}
		return copyAndDelete(src, dst)
	}
	return nil
}

// copyAndDelete streams src to dst and removes the original. Used as a
// fallback when os.Rename fails, typically for cross-device moves.
func copyAndDelete(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return &MoveError{Type: SourceNotFound, Path: src, Err: err}
		}
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		if os.IsPermission(err) {
			return &MoveError{Type: PermissionDenied, Path: src, Err: err}
		}
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, srcInfo.Mode())
	if err != nil {
		if os.IsPermission(err) {
			return &MoveError{Type: PermissionDenied, Path: dst, Err: err}
		}
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}

	if err := os.Remove(src); err != nil {
		// Keep exactly one copy: if the original cannot be removed,
		// drop the new one.
		os.Remove(dst)
		if os.IsPermission(err) {
			return &MoveError{Type: PermissionDenied, Path: src, Err: err}
		}
		return err
	}
	return nil
}
