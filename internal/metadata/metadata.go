// Package metadata derives canonical timestamps and provenance for files.
package metadata

import (
	"os"
	"time"
)

// Derived holds the attributes resolved for one file.
type Derived struct {
	AddedAt      time.Time
	LastOpenedAt *time.Time
	OriginURLs   []string
}

// sources collects the raw attribute values read for one file. Zero times
// mean the attribute was unavailable.
type sources struct {
	birth   time.Time // filesystem birth time
	mod     time.Time // content modification time
	access  time.Time // last access time
	added   time.Time // previously stamped added-at attribute
	origins []string
}

// Resolve derives the canonical added-at timestamp, the optional
// last-opened timestamp, and any recorded origin URLs for path.
//
// The added-at derivation runs in two passes. The first pass picks the
// first available of birth time, modification time, and now. The second
// pass lets any earlier known date win: a stamped added-at attribute or a
// modification time that predates the first-pass choice replaces it. The
// result is never the zero time.
func Resolve(path string, info os.FileInfo, now time.Time) Derived {
	return derive(readSources(path, info), now)
}

func derive(src sources, now time.Time) Derived {
	addedAt := now
	switch {
	case !src.birth.IsZero():
		addedAt = src.birth
	case !src.mod.IsZero():
		addedAt = src.mod
	}

	// Earliest known date wins over the first-pass choice.
	for _, cand := range []time.Time{src.added, src.mod} {
		if !cand.IsZero() && cand.Before(addedAt) {
			addedAt = cand
		}
	}

	d := Derived{AddedAt: addedAt, OriginURLs: src.origins}
	if !src.access.IsZero() {
		t := src.access
		d.LastOpenedAt = &t
	}
	return d
}
