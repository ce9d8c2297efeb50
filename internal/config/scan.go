package config

import (
	"os"
	"path/filepath"
	"sort"
)

// RuntimeVersion is an installed compatibility layer found by ScanRuntimes.
type RuntimeVersion struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ScanRuntimes lists the subdirectories of base that contain a "proton"
// script, sorted by name. A missing or unreadable base yields no versions.
func ScanRuntimes(base string) []RuntimeVersion {
	if base == "" {
		return nil
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}
	var versions []RuntimeVersion
	for _, entry := range entries {
		dir := filepath.Join(base, entry.Name())
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		script := filepath.Join(dir, "proton")
		if _, err := os.Stat(script); err != nil {
			continue
		}
		versions = append(versions, RuntimeVersion{Name: entry.Name(), Path: script})
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Name < versions[j].Name })
	return versions
}
