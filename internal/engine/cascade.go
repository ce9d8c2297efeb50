package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SweepTarget identifies the data prefix whose session processes should be
// stopped. RuntimePath is optional and used to locate the wineserver bundled
// with the compatibility layer.
type SweepTarget struct {
	PrefixPath  string
	RuntimePath string
}

// Sweeper terminates session-scoped processes bound to a prefix.
type Sweeper interface {
	Sweep(ctx context.Context, target SweepTarget) error
}

var errNoWineserver = errors.New("no wineserver binary found")

// CascadeTerminator stops the wineserver session of a prefix with
// `wineserver -k`, which also takes down every process attached to it.
type CascadeTerminator struct {
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	run      func(ctx context.Context, path string, args, env []string) error
	environ  func() []string
}

// NewCascadeTerminator returns a terminator backed by the host system.
func NewCascadeTerminator() *CascadeTerminator {
	return &CascadeTerminator{
		lookPath: exec.LookPath,
		stat:     os.Stat,
		run:      runCommand,
		environ:  os.Environ,
	}
}

// Sweep tries each candidate wineserver in turn and stops at the first one
// that succeeds.
func (c *CascadeTerminator) Sweep(ctx context.Context, target SweepTarget) error {
	if target.PrefixPath == "" {
		return errors.New("prefix path is required")
	}
	bins := c.candidates(target.RuntimePath)
	if len(bins) == 0 {
		return errNoWineserver
	}
	env := append(c.environ(), "WINEPREFIX="+WinePrefix(target.PrefixPath, c.stat))

	var errs []error
	for _, bin := range bins {
		err := c.run(ctx, bin, []string{"-k"}, env)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", bin, err))
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

func (c *CascadeTerminator) candidates(runtimePath string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	if runtimePath != "" {
		root := filepath.Dir(runtimePath)
		for _, rel := range []string{"files/bin/wineserver", "dist/bin/wineserver"} {
			path := filepath.Join(root, filepath.FromSlash(rel))
			if info, err := c.stat(path); err == nil && !info.IsDir() {
				add(path)
			}
		}
	}
	if path, err := c.lookPath("wineserver"); err == nil {
		add(path)
	}
	return out
}

// WinePrefix returns the wine prefix inside a Proton data prefix. Proton keeps
// the wine tree under "pfx"; plain wine prefixes are returned unchanged.
func WinePrefix(prefixPath string, stat func(string) (os.FileInfo, error)) string {
	if stat == nil {
		stat = os.Stat
	}
	pfx := filepath.Join(prefixPath, "pfx")
	if info, err := stat(pfx); err == nil && info.IsDir() {
		return pfx
	}
	return prefixPath
}

func runCommand(ctx context.Context, path string, args, env []string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = env
	if out, err := cmd.CombinedOutput(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(out) > 0 {
			return fmt.Errorf("exit %d: %s", exitErr.ExitCode(), trimOutput(out))
		}
		return err
	}
	return nil
}

func trimOutput(out []byte) string {
	const limit = 256
	if len(out) > limit {
		out = out[:limit]
	}
	return strings.TrimSpace(string(out))
}
