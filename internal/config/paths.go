package config

import (
	"os"
	"path/filepath"
)

const (
	appName        = "protonctl"
	configFileName = "config.yaml"
	legacyFileName = "launcher_config.json"
)

// Paths locates the configuration file and the legacy files it may be
// migrated from.
type Paths struct {
	Current string
	Legacy  []string
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

// DefaultPaths returns the XDG configuration location and the legacy
// locations checked on first load. The working-directory file is where older
// releases stored the configuration.
func DefaultPaths() Paths {
	dir := configDir()
	return Paths{
		Current: filepath.Join(dir, configFileName),
		Legacy: []string{
			filepath.Join(dir, legacyFileName),
			legacyFileName,
		},
	}
}

// PathsFor returns Paths for an explicit configuration file. Explicit files
// have no legacy locations.
func PathsFor(path string) Paths {
	if path == "" {
		return DefaultPaths()
	}
	return Paths{Current: path}
}
