package cli

import (
	"bytes"
	stdcontext "context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Paintersrp/protonctl/internal/config"
	"github.com/Paintersrp/protonctl/internal/engine"
	"github.com/Paintersrp/protonctl/internal/game"
	"github.com/Paintersrp/protonctl/internal/runtime"
)

func newTestContext(t *testing.T, rt runtime.Runtime, opts ...engine.Option) *context {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, ctx := newRootCommand()
	ctx.runtime = rt
	ctx.engineOpts = append([]engine.Option{
		engine.WithManualPolling(),
		engine.WithSweeper(nil),
		engine.WithClientInstallPath(t.TempDir()),
		engine.WithEnviron(func() []string { return nil }),
	}, opts...)
	t.Cleanup(ctx.shutdown)
	return ctx
}

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root, ctx := newRootCommand()
	t.Cleanup(ctx.shutdown)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func newGame(t *testing.T, name string) game.Descriptor {
	t.Helper()
	dir := t.TempDir()
	runtimePath := filepath.Join(dir, "GE-Proton9-20", "proton")
	exe := filepath.Join(dir, "game", "game.exe")
	for _, path := range []string{runtimePath, exe} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, nil, 0o755); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return game.Descriptor{
		Name:           name,
		RuntimePath:    runtimePath,
		ExecutablePath: exe,
		PrefixPath:     filepath.Join(dir, "prefix"),
	}
}

func saveGames(t *testing.T, ctx *context, games ...game.Descriptor) {
	t.Helper()
	rec := config.Default()
	for _, g := range games {
		rec.Upsert(g)
	}
	if err := ctx.saveConfig(rec); err != nil {
		t.Fatalf("save config: %v", err)
	}
}

type fakeRuntime struct {
	mu      sync.Mutex
	handles []*fakeHandle
}

func (f *fakeRuntime) Start(ctx stdcontext.Context, spec runtime.StartSpec) (runtime.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := &fakeHandle{pid: 4000 + len(f.handles)}
	f.handles = append(f.handles, h)
	return h, nil
}

type fakeHandle struct {
	mu         sync.Mutex
	pid        int
	terminated bool
}

func (h *fakeHandle) Pid() int { return h.pid }

func (h *fakeHandle) Exited() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminated, nil
}

func (h *fakeHandle) Terminate() error {
	h.mu.Lock()
	h.terminated = true
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) Logs() <-chan runtime.LogEntry { return nil }

type recordingSweeper struct {
	targets chan engine.SweepTarget
}

func newRecordingSweeper() *recordingSweeper {
	return &recordingSweeper{targets: make(chan engine.SweepTarget, 4)}
}

func (r *recordingSweeper) Sweep(ctx stdcontext.Context, target engine.SweepTarget) error {
	r.targets <- target
	return nil
}

func (r *recordingSweeper) next(t *testing.T) engine.SweepTarget {
	t.Helper()
	select {
	case target := <-r.targets:
		return target
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for sweep")
	}
	return engine.SweepTarget{}
}
