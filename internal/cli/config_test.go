package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Paintersrp/protonctl/internal/api"
	"github.com/Paintersrp/protonctl/internal/config"
)

func TestConfigPathHonoursFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.yaml")
	stdout, _, err := runRoot(t, "--config", path, "config", "path")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if stdout != path+"\n" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
}

func TestConfigGameLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.yaml")
	add := []string{
		"--config", path, "config", "add-game", "Hades",
		"--proton", "/opt/proton/GE-Proton9-20/proton",
		"--exe", "/games/hades/Hades.exe",
		"--prefix", "/prefixes/hades",
		"--ntsync",
		"--env", "STEAM_API_KEY=abc123",
		"--env", "DXVK_HUD=1",
	}

	stdout, _, err := runRoot(t, add...)
	if err != nil {
		t.Fatalf("add-game: %v", err)
	}
	if stdout != "Added Hades (id 1)\n" {
		t.Fatalf("unexpected add output %q", stdout)
	}

	stdout, _, err = runRoot(t, add...)
	if err != nil {
		t.Fatalf("add-game again: %v", err)
	}
	if stdout != "Updated Hades (id 1)\n" {
		t.Fatalf("unexpected update output %q", stdout)
	}

	rec, err := config.Load(config.PathsFor(path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rec.Launches) != 1 || !rec.Launches[0].KernelSync || rec.Launches[0].CustomEnv != "STEAM_API_KEY=abc123\nDXVK_HUD=1" {
		t.Fatalf("unexpected record %#v", rec.Launches)
	}

	stdout, _, err = runRoot(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Contains(stdout, "abc123") {
		t.Fatalf("expected secret to be redacted, got:\n%s", stdout)
	}
	for _, want := range []string{"STEAM_API_KEY=[redacted]", "DXVK_HUD=1", "use_ntsync: true", "name: Hades"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in show output:\n%s", want, stdout)
		}
	}

	stdout, _, err = runRoot(t, "--config", path, "config", "lint")
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if stdout != path+": OK\n" {
		t.Fatalf("unexpected lint output %q", stdout)
	}

	stdout, _, err = runRoot(t, "--config", path, "config", "remove-game", "Hades")
	if err != nil {
		t.Fatalf("remove-game: %v", err)
	}
	if stdout != "Removed Hades\n" {
		t.Fatalf("unexpected remove output %q", stdout)
	}

	if _, _, err := runRoot(t, "--config", path, "config", "remove-game", "Hades"); !errors.Is(err, api.ErrUnknownGame) {
		t.Fatalf("expected ErrUnknownGame, got %v", err)
	}
}

func TestConfigAddGameRequiresPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.yaml")
	if _, _, err := runRoot(t, "--config", path, "config", "add-game", "Hades"); err == nil {
		t.Fatalf("expected missing flag error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file to be written, got %v", err)
	}
}

func TestConfigLintReportsDecodeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.yaml")
	if err := os.WriteFile(path, []byte("games: [\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stdout, stderr, err := runRoot(t, "--config", path, "config", "lint")
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Op != "decode" {
		t.Fatalf("expected decode ConfigError, got %v", err)
	}
	if stdout != "" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
	if !strings.Contains(stderr, path) {
		t.Fatalf("expected stderr to name %s, got %q", path, stderr)
	}
}

func TestScanListsRuntimeVersions(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"Proton 9.0", "GE-Proton9-20"} {
		dir := filepath.Join(base, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "proton"), nil, 0o755); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(base, "not-a-runtime"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfgPath := filepath.Join(t.TempDir(), "games.yaml")
	stdout, _, err := runRoot(t, "--config", cfgPath, "scan", "--dir", base, "--json")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var versions []config.RuntimeVersion
	if err := json.Unmarshal([]byte(stdout), &versions); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if len(versions) != 2 || versions[0].Name != "GE-Proton9-20" || versions[1].Name != "Proton 9.0" {
		t.Fatalf("unexpected versions %#v", versions)
	}
}

func TestScanRequiresDirectory(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "games.yaml")
	if _, _, err := runRoot(t, "--config", cfgPath, "scan"); err == nil || !strings.Contains(err.Error(), "proton_root") {
		t.Fatalf("expected missing directory error, got %v", err)
	}
}
