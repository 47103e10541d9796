package prefs

import (
	"os"
	"path/filepath"
)

// FolderTarget is one destination the user can move a file to.
type FolderTarget struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Icon string `json:"icon"`
}

// DefaultTargets returns the platform-standard destinations that exist
// on disk. A missing standard folder is simply omitted.
func DefaultTargets() []FolderTarget {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	candidates := []FolderTarget{
		{Name: "Desktop", Path: filepath.Join(home, "Desktop"), Icon: "desktop"},
		{Name: "Documents", Path: filepath.Join(home, "Documents"), Icon: "documents"},
	}

	targets := make([]FolderTarget, 0, len(candidates))
	for _, c := range candidates {
		if info, err := os.Stat(c.Path); err == nil && info.IsDir() {
			targets = append(targets, c)
		}
	}
	return targets
}

// Targets recomputes the full destination list on demand: the standard
// folders, any pinned extras, then the recently used folders. Duplicate
// paths keep their first occurrence.
func (p *Prefs) Targets(extra ...FolderTarget) []FolderTarget {
	targets := DefaultTargets()
	targets = append(targets, extra...)

	seen := make(map[string]bool, len(targets))
	out := make([]FolderTarget, 0, len(targets))
	for _, t := range targets {
		if seen[t.Path] {
			continue
		}
		seen[t.Path] = true
		out = append(out, t)
	}

	for _, dir := range p.RecentFolders() {
		if seen[dir] {
			continue
		}
		seen[dir] = true
		out = append(out, FolderTarget{
			Name: filepath.Base(dir),
			Path: dir,
			Icon: "recent",
		})
	}
	return out
}
