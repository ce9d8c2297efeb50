//go:build !windows

package process

import (
	"errors"
	"fmt"
	"syscall"
	"time"
)

const killGrace = 5 * time.Second

// terminate sends SIGTERM to the process group and escalates to SIGKILL in
// the background if the group leader is still running after killGrace.
func (h *handle) terminate() error {
	if h.cmd.Process == nil {
		return nil
	}
	pid := h.cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return fmt.Errorf("signal process group %s: %w", h.name, err)
	}

	go func() {
		select {
		case <-h.waitDone:
		case <-time.After(killGrace):
			_ = syscall.Kill(-pid, syscall.SIGKILL)
		}
	}()
	return nil
}
