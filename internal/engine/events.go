package engine

import (
	"time"

	"github.com/Paintersrp/protonctl/internal/runtime"
)

// EventType captures high level lifecycle notifications emitted by the
// supervisor and its monitors.
type EventType string

const (
	EventTypeStarting EventType = "starting"
	EventTypeRunning  EventType = "running"
	EventTypeStopping EventType = "stopping"
	EventTypeLog      EventType = "log"
	EventTypeError    EventType = "error"
	EventTypeDegraded EventType = "degraded"
	EventTypeSweep    EventType = "sweep"
	// EventTypeReady is the terminal notification. Exactly one is emitted
	// per successful launch, whether the game exited or was killed.
	EventTypeReady EventType = "ready"
)

// StatusReady is the fixed label carried by terminal notifications on the
// process-status channel.
const StatusReady = string(EventTypeReady)

// Event represents a single lifecycle or log notification.
type Event struct {
	Timestamp time.Time
	Game      string
	LaunchID  string
	Pid       int
	Type      EventType
	Message   string
	Level     string
	Source    string
	Err       error
	Reason    string
}

// Terminal reports whether the event ends a launch's lifecycle.
func (e Event) Terminal() bool {
	return e.Type == EventTypeReady
}

const (
	ReasonLaunched      = "launched"
	ReasonRejected      = "rejected"
	ReasonSpawnFailure  = "spawn_failure"
	ReasonProcessExited = "process_exited"
	ReasonKilled        = "killed"
	ReasonStatusUnknown = "status_unknown"
	ReasonTerminateFail = "terminate_failed"
	ReasonSweepComplete = "sweep_complete"
	ReasonSweepFailed   = "sweep_failed"
	ReasonLogsDropped   = "logs_dropped"
	ReasonPrefixTool    = "prefix_tool"
)

func newEvent(game, launchID string, t EventType, message, reason string, err error) Event {
	level := "info"
	switch t {
	case EventTypeError, EventTypeDegraded:
		level = "error"
	}
	return Event{
		Timestamp: time.Now(),
		Game:      game,
		LaunchID:  launchID,
		Type:      t,
		Message:   message,
		Level:     level,
		Source:    runtime.LogSourceSystem,
		Err:       err,
		Reason:    reason,
	}
}
