package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Paintersrp/protonctl/internal/api"
	"github.com/Paintersrp/protonctl/internal/config"
	"github.com/Paintersrp/protonctl/internal/engine"
	"github.com/Paintersrp/protonctl/internal/game"
	"github.com/Paintersrp/protonctl/internal/probe"
)

const subscriberBuffer = 64

var errNoContext = errors.New("control API unavailable")

// ControlAPI exposes supervisor operations for the HTTP control plane.
type ControlAPI struct {
	ctx *context
}

// NewControlAPI constructs a ControlAPI wrapper around the shared CLI context.
func NewControlAPI(ctx *context) *ControlAPI {
	if ctx == nil {
		return nil
	}
	return &ControlAPI{ctx: ctx}
}

func (apiCtrl *ControlAPI) ready(ctx stdcontext.Context) error {
	if apiCtrl == nil || apiCtrl.ctx == nil {
		return errNoContext
	}
	if ctx != nil {
		return ctx.Err()
	}
	return nil
}

// resolve returns the inline descriptor of req, or the persisted one it names.
func (apiCtrl *ControlAPI) resolve(req api.LaunchRequest) (game.Descriptor, error) {
	if req.Game != nil {
		return req.Game.Clone(), nil
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return game.Descriptor{}, fmt.Errorf("%w: name or game is required", api.ErrInvalidRequest)
	}
	rec, err := apiCtrl.ctx.loadConfig()
	if err != nil {
		return game.Descriptor{}, err
	}
	desc, ok := rec.Find(name)
	if !ok {
		return game.Descriptor{}, fmt.Errorf("%w: %s", api.ErrUnknownGame, name)
	}
	return desc, nil
}

// Launch starts a game.
func (apiCtrl *ControlAPI) Launch(ctx stdcontext.Context, req api.LaunchRequest) (*api.MessageResult, error) {
	if err := apiCtrl.ready(ctx); err != nil {
		return nil, err
	}
	desc, err := apiCtrl.resolve(req)
	if err != nil {
		return nil, err
	}
	msg, err := apiCtrl.ctx.getSupervisor().Launch(ctx, desc, req.UseWrapper)
	if err != nil {
		return nil, err
	}
	return &api.MessageResult{Message: msg}, nil
}

// Kill stops a game. Without an explicit prefix, the prefix of a persisted
// game with the same name is swept even when nothing is running.
func (apiCtrl *ControlAPI) Kill(ctx stdcontext.Context, req api.KillRequest) error {
	if err := apiCtrl.ready(ctx); err != nil {
		return err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", api.ErrInvalidRequest)
	}
	sup := apiCtrl.ctx.getSupervisor()
	prefix := req.PrefixPath
	if prefix == "" && !sup.Running(name) {
		if rec, err := apiCtrl.ctx.loadConfig(); err == nil {
			if desc, ok := rec.Find(name); ok {
				prefix = desc.PrefixPath
			}
		}
	}
	return sup.Kill(name, prefix)
}

// Status lists the supervised games.
func (apiCtrl *ControlAPI) Status(ctx stdcontext.Context) (*api.StatusReport, error) {
	if err := apiCtrl.ready(ctx); err != nil {
		return nil, err
	}
	return &api.StatusReport{
		GeneratedAt: time.Now(),
		Games:       apiCtrl.ctx.getSupervisor().List(),
	}, nil
}

// Health probes the host.
func (apiCtrl *ControlAPI) Health(ctx stdcontext.Context) (*probe.Snapshot, error) {
	if err := apiCtrl.ready(ctx); err != nil {
		return nil, err
	}
	snap, err := apiCtrl.ctx.getProber().Probe(ctx)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Config returns the persisted record.
func (apiCtrl *ControlAPI) Config(ctx stdcontext.Context) (*config.Record, error) {
	if err := apiCtrl.ready(ctx); err != nil {
		return nil, err
	}
	return apiCtrl.ctx.loadConfig()
}

// SaveConfig replaces the persisted record.
func (apiCtrl *ControlAPI) SaveConfig(ctx stdcontext.Context, rec *config.Record) error {
	if err := apiCtrl.ready(ctx); err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: record is required", api.ErrInvalidRequest)
	}
	return apiCtrl.ctx.saveConfig(rec)
}

// Runtimes scans the configured runtime directory.
func (apiCtrl *ControlAPI) Runtimes(ctx stdcontext.Context) ([]config.RuntimeVersion, error) {
	if err := apiCtrl.ready(ctx); err != nil {
		return nil, err
	}
	rec, err := apiCtrl.ctx.loadConfig()
	if err != nil {
		return nil, err
	}
	return config.ScanRuntimes(rec.BaseRuntimeDirectory), nil
}

// RunInPrefix launches another executable inside a game's prefix.
func (apiCtrl *ControlAPI) RunInPrefix(ctx stdcontext.Context, req api.RunInPrefixRequest) (*api.MessageResult, error) {
	if err := apiCtrl.ready(ctx); err != nil {
		return nil, err
	}
	desc, err := apiCtrl.resolve(req.LaunchRequest)
	if err != nil {
		return nil, err
	}
	msg, err := apiCtrl.ctx.getSupervisor().RunInPrefix(ctx, desc, req.ExecutablePath, req.UseWrapper)
	if err != nil {
		return nil, err
	}
	return &api.MessageResult{Message: msg}, nil
}

// OpenPrefixTool opens winetricks for a prefix.
func (apiCtrl *ControlAPI) OpenPrefixTool(ctx stdcontext.Context, req api.PrefixToolRequest) (*api.MessageResult, error) {
	if err := apiCtrl.ready(ctx); err != nil {
		return nil, err
	}
	msg, err := apiCtrl.ctx.getSupervisor().OpenPrefixTool(ctx, req.PrefixPath)
	if err != nil {
		return nil, err
	}
	return &api.MessageResult{Message: msg}, nil
}

// Subscribe streams terminal notifications as process-status events.
func (apiCtrl *ControlAPI) Subscribe(ctx stdcontext.Context) (<-chan api.StatusEvent, func()) {
	out := make(chan api.StatusEvent, subscriberBuffer)
	if apiCtrl == nil || apiCtrl.ctx == nil {
		close(out)
		return out, func() {}
	}
	if ctx == nil {
		ctx = stdcontext.Background()
	}
	ctx, cancel := stdcontext.WithCancel(ctx)
	events, release := apiCtrl.ctx.subscribe(subscriberBuffer)

	go func() {
		defer close(out)
		defer release()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				if !evt.Terminal() {
					continue
				}
				select {
				case out <- api.StatusEvent{Name: evt.Game, Label: engine.StatusReady, LaunchID: evt.LaunchID}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel
}

// Ensure interface compliance at compile time.
var _ api.Controller = (*ControlAPI)(nil)
