package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/Paintersrp/protonctl/internal/runtime"
)

const logBuffer = 256

type runtimeImpl struct{}

// New constructs a runtime that executes games as local processes.
func New() runtime.Runtime {
	return &runtimeImpl{}
}

func (r *runtimeImpl) Start(ctx context.Context, spec runtime.StartSpec) (runtime.Handle, error) {
	if spec.Path == "" {
		return nil, &runtime.SpawnError{Name: spec.Name, Err: errors.New("empty command")}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// exec.Command rather than CommandContext: the game must outlive the
	// request that started it.
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	// Plain os.Pipe pairs instead of StdoutPipe: Wait must not close the
	// read ends, and wine helpers may keep the write ends open after the
	// game itself exits.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, &runtime.SpawnError{Name: spec.Name, Path: spec.Path, Err: fmt.Errorf("stdout: %w", err)}
	}
	stderr, stderrW, err := os.Pipe()
	if err != nil {
		stdout.Close()
		stdoutW.Close()
		return nil, &runtime.SpawnError{Name: spec.Name, Path: spec.Path, Err: fmt.Errorf("stderr: %w", err)}
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	configureCmdSysProcAttr(cmd)

	err = cmd.Start()
	stdoutW.Close()
	stderrW.Close()
	if err != nil {
		stdout.Close()
		stderr.Close()
		return nil, &runtime.SpawnError{Name: spec.Name, Path: spec.Path, Err: err}
	}

	h := &handle{
		name:     spec.Name,
		cmd:      cmd,
		logs:     make(chan runtime.LogEntry, logBuffer),
		waitDone: make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go h.streamLogs(stdout, runtime.LogSourceStdout, &wg)
	go h.streamLogs(stderr, runtime.LogSourceStderr, &wg)
	go func() {
		wg.Wait()
		close(h.logs)
	}()

	go func() {
		h.waitErr = cmd.Wait()
		close(h.waitDone)
	}()

	return h, nil
}

type handle struct {
	name string
	cmd  *exec.Cmd
	logs chan runtime.LogEntry

	waitDone chan struct{}
	waitErr  error

	termOnce sync.Once
	termErr  error
}

func (h *handle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Exited treats a non-zero exit status as a normal exit. Any other wait
// failure means the outcome is unknown and is returned as an error.
func (h *handle) Exited() (bool, error) {
	select {
	case <-h.waitDone:
	default:
		return false, nil
	}
	if h.waitErr == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(h.waitErr, &exitErr) {
		return true, nil
	}
	return false, fmt.Errorf("wait %s: %w", h.name, h.waitErr)
}

func (h *handle) Terminate() error {
	h.termOnce.Do(func() {
		h.termErr = h.terminate()
	})
	return h.termErr
}

func (h *handle) Logs() <-chan runtime.LogEntry {
	return h.logs
}

func (h *handle) streamLogs(r io.ReadCloser, source string, wg *sync.WaitGroup) {
	defer wg.Done()
	defer r.Close()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		entry := runtime.LogEntry{Message: line, Source: source}
		if source == runtime.LogSourceStderr {
			entry.Level = "warn"
		}
		h.logs <- entry
	}
	// Keep draining so the game never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}
