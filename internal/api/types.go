package api

import (
	stdcontext "context"
	"errors"
	"time"

	"github.com/Paintersrp/protonctl/internal/config"
	"github.com/Paintersrp/protonctl/internal/engine"
	"github.com/Paintersrp/protonctl/internal/game"
	"github.com/Paintersrp/protonctl/internal/probe"
)

var (
	ErrUnknownGame    = errors.New("unknown game")
	ErrInvalidRequest = errors.New("invalid request")
)

// LaunchRequest starts a game. Game carries an inline descriptor; when it is
// nil the descriptor named Name is looked up in the persisted configuration.
type LaunchRequest struct {
	Name       string           `json:"name,omitempty"`
	Game       *game.Descriptor `json:"game,omitempty"`
	UseWrapper bool             `json:"use_gamemode"`
}

// KillRequest stops a game and sweeps its prefix. An empty PrefixPath falls
// back to the prefix of the running launch.
type KillRequest struct {
	Name       string `json:"name"`
	PrefixPath string `json:"prefix_path,omitempty"`
}

// RunInPrefixRequest runs another executable inside a game's prefix.
type RunInPrefixRequest struct {
	LaunchRequest
	ExecutablePath string `json:"exe_path"`
}

// PrefixToolRequest opens the prefix maintenance tool.
type PrefixToolRequest struct {
	PrefixPath string `json:"prefix_path"`
}

// MessageResult carries the human readable outcome of an operation.
type MessageResult struct {
	Message string `json:"message"`
}

// StatusReport lists the supervised games.
type StatusReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Games       []engine.Launch `json:"games"`
}

// StatusEvent is one process-status notification. Label is always
// engine.StatusReady.
type StatusEvent struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	LaunchID string `json:"launch_id,omitempty"`
}

// Controller exposes launcher operations required by control servers.
type Controller interface {
	Launch(stdcontext.Context, LaunchRequest) (*MessageResult, error)
	Kill(stdcontext.Context, KillRequest) error
	Status(stdcontext.Context) (*StatusReport, error)
	Health(stdcontext.Context) (*probe.Snapshot, error)
	Config(stdcontext.Context) (*config.Record, error)
	SaveConfig(stdcontext.Context, *config.Record) error
	Runtimes(stdcontext.Context) ([]config.RuntimeVersion, error)
	RunInPrefix(stdcontext.Context, RunInPrefixRequest) (*MessageResult, error)
	OpenPrefixTool(stdcontext.Context, PrefixToolRequest) (*MessageResult, error)
	// Subscribe streams process-status notifications until the returned
	// release function is called or ctx ends.
	Subscribe(stdcontext.Context) (<-chan StatusEvent, func())
}
