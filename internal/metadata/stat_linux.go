//go:build linux

package metadata

import (
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const (
	addedAttr    = "user.donload.added"
	originAttr   = "user.xdg.origin.url"
	referrerAttr = "user.xdg.referrer.url"
)

func readSources(path string, info os.FileInfo) sources {
	var src sources
	if info != nil && !info.ModTime().IsZero() {
		src.mod = info.ModTime()
	}

	var stx unix.Statx_t
	mask := unix.STATX_BTIME | unix.STATX_ATIME | unix.STATX_MTIME
	if err := unix.Statx(unix.AT_FDCWD, path, 0, mask, &stx); err == nil {
		if stx.Mask&unix.STATX_BTIME != 0 {
			src.birth = statxTime(stx.Btime)
		}
		if stx.Mask&unix.STATX_ATIME != 0 {
			src.access = statxTime(stx.Atime)
		}
		if src.mod.IsZero() && stx.Mask&unix.STATX_MTIME != 0 {
			src.mod = statxTime(stx.Mtime)
		}
	}

	if t, ok := readTimeAttr(path, addedAttr); ok {
		src.added = t
	}
	for _, attr := range []string{originAttr, referrerAttr} {
		if v, ok := readStringAttr(path, attr); ok {
			src.origins = append(src.origins, v)
		}
	}
	return src
}

// StampAdded records t on path as the added-at attribute so the derived
// value survives restarts on filesystems without birth-time support.
// Filesystems that reject user attributes simply do not get a stamp.
func StampAdded(path string, t time.Time) error {
	v := t.UTC().Format(time.RFC3339)
	return unix.Setxattr(path, addedAttr, []byte(v), 0)
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	if ts.Sec == 0 {
		return time.Time{}
	}
	return time.Unix(ts.Sec, int64(ts.Nsec))
}

func readStringAttr(path, name string) (string, bool) {
	sz, err := unix.Getxattr(path, name, nil)
	if err != nil || sz <= 0 {
		return "", false
	}
	buf := make([]byte, sz)
	n, err := unix.Getxattr(path, name, buf)
	if err != nil || n <= 0 {
		return "", false
	}
	return strings.TrimRight(string(buf[:n]), "\x00"), true
}

func readTimeAttr(path, name string) (time.Time, bool) {
	v, ok := readStringAttr(path, name)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
