package envbuild

import (
	"os"
	"path/filepath"
)

// DetectClientInstallPath returns the first existing Steam installation root.
// Proton only requires the variable to point at a directory, so the system
// temp directory is used when no installation is found.
func DetectClientInstallPath() string {
	if path := os.Getenv(EnvCompatClientPath); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err == nil {
		for _, candidate := range clientInstallCandidates(home) {
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				return candidate
			}
		}
	}
	return os.TempDir()
}

func clientInstallCandidates(home string) []string {
	return []string{
		filepath.Join(home, ".steam", "root"),
		filepath.Join(home, ".steam", "steam"),
		filepath.Join(home, ".local", "share", "Steam"),
		filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", "data", "Steam"),
	}
}
