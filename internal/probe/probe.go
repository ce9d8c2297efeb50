// Package probe inspects the host for the optional capabilities games can
// take advantage of. Snapshots are recomputed on every call and never cached.
package probe

import (
	"context"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"
)

// Host binaries and devices inspected by Probe.
const (
	KernelSyncDevice   = "/dev/ntsync"
	SchedulerWrapper   = "gamemoderun"
	GraphicsInfoTool   = "vulkaninfo"
	RuntimeLauncher    = "umu-run"
	defaultProbeBudget = 5 * time.Second
)

// Snapshot is a point-in-time view of the host capabilities.
type Snapshot struct {
	KernelSyncAvailable       bool   `json:"ntsync_ok"`
	SchedulerWrapperAvailable bool   `json:"gamemode_ok"`
	GraphicsAPIAvailable      bool   `json:"vulkan_ok"`
	RuntimePresent            bool   `json:"umu_ok"`
	RuntimeVersion            string `json:"umu_version"`
}

// Prober runs the capability checks. The zero value is not usable; construct
// one with New.
type Prober struct {
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	run      func(ctx context.Context, path string, args ...string) ([]byte, error)
	timeout  time.Duration
}

// New returns a Prober backed by the host system.
func New() *Prober {
	return &Prober{
		lookPath: exec.LookPath,
		stat:     os.Stat,
		run:      runCommand,
		timeout:  defaultProbeBudget,
	}
}

// Probe runs every check concurrently. Individual check failures only clear
// the corresponding field; the error is non-nil only when parent ends first.
func (p *Prober) Probe(parent context.Context) (Snapshot, error) {
	ctx := parent
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := p.stat(KernelSyncDevice)
		snap.KernelSyncAvailable = err == nil
		return nil
	})
	g.Go(func() error {
		_, err := p.lookPath(SchedulerWrapper)
		snap.SchedulerWrapperAvailable = err == nil
		return nil
	})
	g.Go(func() error {
		snap.GraphicsAPIAvailable = p.graphicsAvailable(gctx)
		return nil
	})
	g.Go(func() error {
		snap.RuntimePresent, snap.RuntimeVersion = p.runtimeVersion(gctx)
		return nil
	})
	_ = g.Wait()
	if err := parent.Err(); err != nil {
		return snap, err
	}
	return snap, nil
}

func (p *Prober) graphicsAvailable(ctx context.Context) bool {
	path, err := p.lookPath(GraphicsInfoTool)
	if err != nil {
		return false
	}
	_, err = p.run(ctx, path, "--summary")
	return err == nil
}

func (p *Prober) runtimeVersion(ctx context.Context) (bool, string) {
	path, err := p.lookPath(RuntimeLauncher)
	if err != nil {
		return false, ""
	}
	out, err := p.run(ctx, path, "--version")
	if err != nil {
		return true, ""
	}
	return true, firstLine(out)
}
