// Package envbuild turns a launch descriptor into the command line and the
// environment handed to the compatibility layer.
//
// The environment is assembled from explicit layers applied in a fixed
// order: the mandatory base layer, the feature-flag layer and the custom
// override layer. Later layers replace earlier values for the same key.
// Launch arguments are positional and appended to the command untouched by
// the layering.
package envbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Paintersrp/protonctl/internal/game"
)

// Variable names understood by Proton and the Vulkan layers it loads.
const (
	EnvCompatDataPath     = "STEAM_COMPAT_DATA_PATH"
	EnvCompatClientPath   = "STEAM_COMPAT_CLIENT_INSTALL_PATH"
	EnvNoEsync            = "PROTON_NO_ESYNC"
	EnvNoFsync            = "PROTON_NO_FSYNC"
	EnvUseFsync           = "PROTON_USE_FSYNC"
	EnvUseNtsync          = "PROTON_USE_NTSYNC"
	EnvAntiLag            = "ENABLE_LAYER_MESA_ANTI_LAG"
	EnvDLLOverrides       = "WINEDLLOVERRIDES"
	antiCheatDLLOverrides = "lsteamclient=d;winedbg="
)

// WrapperCommand is the performance scheduling wrapper prepended on request.
const WrapperCommand = "gamemoderun"

// Options controls how a descriptor is turned into a command.
type Options struct {
	// UseWrapper prepends WrapperCommand to the command line.
	UseWrapper bool
	// ClientInstallPath is the detected base installation of the gaming
	// platform. An empty value falls back to DetectClientInstallPath.
	ClientInstallPath string
}

// Command is the fully composed invocation.
type Command struct {
	Path string
	Args []string
	Env  []Assignment
	Dir  string
}

// Argv returns the full argument vector including the executable.
func (c *Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Path)
	return append(argv, c.Args...)
}

// Environ renders the composed assignments on top of base. Entries from base
// whose keys are overridden are dropped so the child sees a single value.
func (c *Command) Environ(base []string) []string {
	overridden := make(map[string]struct{}, len(c.Env))
	for _, a := range c.Env {
		overridden[a.Key] = struct{}{}
	}
	env := make([]string, 0, len(base)+len(c.Env))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overridden[key]; ok {
			continue
		}
		env = append(env, kv)
	}
	for _, a := range c.Env {
		env = append(env, a.String())
	}
	return env
}

// Build validates the descriptor paths, prepares the data prefix and composes
// the command. It fails with a *ValidationError when the runtime or the
// target executable does not exist.
func Build(desc game.Descriptor, opts Options) (*Command, error) {
	if err := requireFile("runtime path", desc.RuntimePath); err != nil {
		return nil, err
	}
	if err := requireFile("executable path", desc.ExecutablePath); err != nil {
		return nil, err
	}
	if desc.PrefixPath == "" {
		return nil, &ValidationError{Field: "prefix path"}
	}
	if err := os.MkdirAll(desc.PrefixPath, 0o755); err != nil {
		return nil, fmt.Errorf("create prefix %s: %w", desc.PrefixPath, err)
	}

	clientPath := opts.ClientInstallPath
	if clientPath == "" {
		clientPath = DetectClientInstallPath()
	}

	cmd := &Command{
		Env: Compose(
			BaseLayer(desc, clientPath),
			FeatureLayer(desc),
			CustomLayer(desc),
		),
		Dir: filepath.Dir(desc.ExecutablePath),
	}

	args := []string{desc.RuntimePath, "run", desc.ExecutablePath}
	args = append(args, desc.Arguments()...)
	if opts.UseWrapper {
		cmd.Path = WrapperCommand
		cmd.Args = args
	} else {
		cmd.Path = args[0]
		cmd.Args = args[1:]
	}
	return cmd, nil
}

// BaseLayer binds the compatibility data and client paths and enables the
// default synchronization backends.
func BaseLayer(desc game.Descriptor, clientPath string) Layer {
	l := Layer{Name: "base"}
	l.set(EnvCompatDataPath, desc.PrefixPath)
	l.set(EnvCompatClientPath, clientPath)
	l.set(EnvNoEsync, "0")
	l.set(EnvNoFsync, "0")
	l.set(EnvUseFsync, "1")
	return l
}

// FeatureLayer applies the descriptor's feature toggles. The anti-cheat
// toggle also redirects libraries and switches synchronization off.
func FeatureLayer(desc game.Descriptor) Layer {
	l := Layer{Name: "features"}
	l.set(EnvUseNtsync, boolValue(desc.KernelSync))
	l.set(EnvAntiLag, boolValue(desc.AntiLag))
	if desc.AntiCheat {
		l.set(EnvDLLOverrides, antiCheatDLLOverrides)
		l.set(EnvNoEsync, "1")
		l.set(EnvNoFsync, "1")
		l.set(EnvUseFsync, "0")
	}
	return l
}

// CustomLayer parses the descriptor's custom environment block.
func CustomLayer(desc game.Descriptor) Layer {
	return Layer{Name: "custom", Assignments: ParseCustomEnv(desc.CustomEnv)}
}

func requireFile(field, path string) error {
	if path == "" {
		return &ValidationError{Field: field}
	}
	if _, err := os.Stat(path); err != nil {
		return &ValidationError{Field: field, Path: path, Err: err}
	}
	return nil
}

func boolValue(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
