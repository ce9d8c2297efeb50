package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Paintersrp/protonctl/internal/game"
)

func sampleRecord() *Record {
	return &Record{
		BaseRuntimeDirectory: "/home/user/Games/Proton",
		Launches: []game.Descriptor{
			{
				ID:              1,
				Name:            "Elden Ring",
				RuntimePath:     "/home/user/Games/Proton/GE-Proton9-20/proton",
				ExecutablePath:  "/games/elden/eldenring.exe",
				PrefixPath:      "/games/prefixes/elden",
				AntiCheat:       true,
				KernelSync:      true,
				CustomEnv:       "WINEDLLOVERRIDES=vcruntime140=n,b\n# comment",
				LaunchArguments: "-SkipBuildPatchPrereq",
			},
			{
				ID:             2,
				Name:           "Hades",
				RuntimePath:    "/proton/proton",
				ExecutablePath: "/games/hades/Hades.exe",
				PrefixPath:     "/games/prefixes/hades",
				AntiLag:        true,
			},
		},
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	rec, err := Load(Paths{Current: filepath.Join(dir, "config.yaml")})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if rec.BaseRuntimeDirectory != "" {
		t.Fatalf("unexpected base directory %q", rec.BaseRuntimeDirectory)
	}
	if rec.Launches == nil || len(rec.Launches) != 0 {
		t.Fatalf("expected empty, non-nil launches, got %#v", rec.Launches)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); !os.IsNotExist(err) {
		t.Fatalf("Load must not create the file, stat err=%v", err)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := sampleRecord()

	if err := Save(path, want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := Load(Paths{Current: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestSaveEmptyRecordRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(path, &Record{}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := Load(Paths{Current: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(got, Default()) {
		t.Fatalf("expected default record, got %#v", got)
	}
}

func TestLoadCorruptFileNamesLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("games: [unterminated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(Paths{Current: path})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Path != path || !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to name %s, got %v", path, err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("proton_root: /x\nunexpected: true\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(Paths{Current: path}); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestLoadMigratesLegacyJSON(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "launcher_config.json")
	current := filepath.Join(dir, "xdg", "protonctl", "config.yaml")
	legacyData := `{
  "proton_root": "/opt/proton",
  "games": [
    {
      "id": 1700000000000,
      "name": "Hades",
      "proton_path": "/opt/proton/GE/proton",
      "exe_path": "/games/Hades.exe",
      "prefix_path": "/prefixes/hades",
      "use_ace": false
    }
  ]
}`
	if err := os.WriteFile(legacy, []byte(legacyData), 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}

	rec, err := Load(Paths{Current: current, Legacy: []string{filepath.Join(dir, "missing.json"), legacy}})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if rec.BaseRuntimeDirectory != "/opt/proton" || len(rec.Launches) != 1 {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if got := rec.Launches[0]; got.ID != 1700000000000 || got.Name != "Hades" || got.PrefixPath != "/prefixes/hades" {
		t.Fatalf("unexpected descriptor: %#v", got)
	}

	copied, err := os.ReadFile(current)
	if err != nil {
		t.Fatalf("expected legacy file to be copied: %v", err)
	}
	if string(copied) != legacyData {
		t.Fatalf("copied content differs from legacy file")
	}
	if _, err := os.Stat(legacy); err != nil {
		t.Fatalf("legacy file must be left in place: %v", err)
	}
}

func TestLoadPrefersCurrentOverLegacy(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "launcher_config.json")
	current := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(legacy, []byte(`{"proton_root": "/legacy", "games": []}`), 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}
	if err := Save(current, &Record{BaseRuntimeDirectory: "/current"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec, err := Load(Paths{Current: current, Legacy: []string{legacy}})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if rec.BaseRuntimeDirectory != "/current" {
		t.Fatalf("expected current file to win, got %q", rec.BaseRuntimeDirectory)
	}
}

func TestDefaultPathsHonourXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	paths := DefaultPaths()
	if got, want := paths.Current, filepath.Join(xdg, "protonctl", "config.yaml"); got != want {
		t.Fatalf("unexpected current path: got %q want %q", got, want)
	}
	if len(paths.Legacy) == 0 {
		t.Fatalf("expected legacy locations")
	}
	if explicit := PathsFor("/etc/protonctl.yaml"); explicit.Current != "/etc/protonctl.yaml" || len(explicit.Legacy) != 0 {
		t.Fatalf("unexpected explicit paths: %#v", explicit)
	}
}
