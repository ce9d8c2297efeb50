//go:build windows

package process

import (
	"errors"
	"fmt"
	"os"
)

func (h *handle) terminate() error {
	if h.cmd.Process == nil {
		return nil
	}
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %s: %w", h.name, err)
	}
	return nil
}
