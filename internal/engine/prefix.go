package engine

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Paintersrp/protonctl/internal/config"
	"github.com/Paintersrp/protonctl/internal/envbuild"
	"github.com/Paintersrp/protonctl/internal/game"
	"github.com/Paintersrp/protonctl/internal/runtime"
)

// PrefixToolCommand is the helper opened by OpenPrefixTool.
const PrefixToolCommand = "winetricks"

// PrefixLaunchName is the registry name used for an executable run inside
// another game's prefix.
func PrefixLaunchName(name, exe string) string {
	return fmt.Sprintf("%s [%s]", name, filepath.Base(exe))
}

// RunInPrefix launches exe with the environment of desc. The launch is
// supervised under PrefixLaunchName so it does not collide with the game
// itself, and the game's launch arguments are not passed.
func (s *Supervisor) RunInPrefix(ctx context.Context, desc game.Descriptor, exe string, useWrapper bool) (string, error) {
	if strings.TrimSpace(exe) == "" {
		return "", &envbuild.ValidationError{Field: "executable path"}
	}
	variant := desc.Clone()
	variant.Name = PrefixLaunchName(desc.Name, exe)
	variant.ExecutablePath = exe
	variant.LaunchArguments = ""
	return s.Launch(ctx, variant, useWrapper)
}

// OpenPrefixTool starts winetricks against prefixPath. The tool is not
// supervised; its output is discarded.
func (s *Supervisor) OpenPrefixTool(ctx context.Context, prefixPath string) (string, error) {
	if strings.TrimSpace(prefixPath) == "" {
		return "", &envbuild.ValidationError{Field: "prefix path"}
	}
	path, err := s.lookPath(PrefixToolCommand)
	if err != nil {
		return "", &config.ConfigError{Op: "lookup", Path: PrefixToolCommand, Err: exec.ErrNotFound}
	}

	env := append(s.environ(), "WINEPREFIX="+WinePrefix(prefixPath, nil))
	handle, err := s.runtime.Start(ctx, runtime.StartSpec{
		Name: PrefixToolCommand,
		Path: path,
		Env:  env,
	})
	if err != nil {
		s.emit(newEvent(PrefixToolCommand, "", EventTypeError, err.Error(), ReasonPrefixTool, err))
		return "", err
	}
	drainLogs(handle.Logs())

	evt := newEvent(PrefixToolCommand, "", EventTypeRunning, "prefix "+prefixPath, ReasonPrefixTool, nil)
	evt.Pid = handle.Pid()
	s.emit(evt)
	return "Opened Winetricks", nil
}
