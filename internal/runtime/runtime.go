package runtime

import (
	"context"
	"fmt"
)

// Log sources attached to LogEntry values and engine events.
const (
	LogSourceStdout = "stdout"
	LogSourceStderr = "stderr"
	LogSourceSystem = "system"
)

// LogEntry is a single line of output captured from a supervised process.
type LogEntry struct {
	Message string
	Source  string
	Level   string
}

// StartSpec describes the process a runtime should create.
type StartSpec struct {
	Name string
	Path string
	Args []string
	Env  []string
	Dir  string
}

// Handle represents one running OS process. A handle is owned by exactly one
// registry entry and must not be shared.
type Handle interface {
	// Pid returns the operating system process id.
	Pid() int

	// Exited reports, without blocking, whether the process has terminated.
	// An error means the status could not be determined.
	Exited() (bool, error)

	// Terminate asks the process (and its process group) to exit. It does
	// not wait for the exit and is safe to call more than once.
	Terminate() error

	// Logs returns a channel of output lines. The channel is closed once
	// both output streams reach EOF. A nil channel means the runtime does
	// not capture output.
	Logs() <-chan LogEntry
}

// Runtime creates processes.
type Runtime interface {
	// Start spawns the process described by spec. The context only bounds
	// the spawn itself; the process outlives it.
	Start(ctx context.Context, spec StartSpec) (Handle, error)
}

// SpawnError reports that the operating system refused to create a process.
type SpawnError struct {
	Name string
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s (%s): %v", e.Name, e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
