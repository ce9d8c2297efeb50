package engine

import (
	"context"
	"time"

	"github.com/Paintersrp/protonctl/internal/metrics"
)

// MonitorState is the status of an exit monitor.
type MonitorState int

const (
	// MonitorRunning means the process is alive and still being watched.
	MonitorRunning MonitorState = iota
	// MonitorExited means the process exited on its own and its entry was
	// removed.
	MonitorExited
	// MonitorReleased means the entry was removed by an explicit kill.
	MonitorReleased
	// MonitorDegraded means the process status could not be determined.
	// The entry is left in place until an explicit kill.
	MonitorDegraded
	// MonitorCancelled means the supervisor shut down before the launch
	// ended.
	MonitorCancelled
)

func (s MonitorState) String() string {
	switch s {
	case MonitorRunning:
		return "running"
	case MonitorExited:
		return "exited"
	case MonitorReleased:
		return "released"
	case MonitorDegraded:
		return "degraded"
	case MonitorCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the monitor has stopped watching.
func (s MonitorState) Terminal() bool {
	return s != MonitorRunning
}

// exitMonitor watches a single launch. Its state is guarded by the
// supervisor mutex.
type exitMonitor struct {
	sup      *Supervisor
	name     string
	launchID string
	state    MonitorState
}

func newExitMonitor(s *Supervisor, name, launchID string) *exitMonitor {
	return &exitMonitor{sup: s, name: name, launchID: launchID}
}

func (m *exitMonitor) run(ctx context.Context) {
	defer m.sup.wg.Done()
	ticker := time.NewTicker(m.sup.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.sup.mu.Lock()
			if m.state == MonitorRunning {
				m.state = MonitorCancelled
			}
			m.sup.mu.Unlock()
			return
		case <-ticker.C:
		}
		if m.check().Terminal() {
			return
		}
	}
}

// check performs one evaluation. Once a terminal state is reached further
// calls return it without side effects, so the terminal notification is
// emitted at most once.
func (m *exitMonitor) check() MonitorState {
	s := m.sup
	s.mu.Lock()
	if m.state.Terminal() {
		state := m.state
		s.mu.Unlock()
		return state
	}

	e, ok := s.entries[m.name]
	if !ok || e.launchID != m.launchID {
		m.state = MonitorReleased
		s.mu.Unlock()
		s.notifyTerminal(m.name, m.launchID, ReasonKilled)
		return MonitorReleased
	}

	exited, err := e.handle.Exited()
	switch {
	case err != nil:
		m.state = MonitorDegraded
		s.mu.Unlock()
		s.emit(newEvent(m.name, m.launchID, EventTypeDegraded, "process status unavailable; kill the game to recover", ReasonStatusUnknown, err))
		return MonitorDegraded
	case exited:
		delete(s.entries, m.name)
		m.state = MonitorExited
		s.mu.Unlock()
		metrics.SetGameRunning(m.name, false)
		s.notifyTerminal(m.name, m.launchID, ReasonProcessExited)
		return MonitorExited
	default:
		s.mu.Unlock()
		return MonitorRunning
	}
}

// Check synchronously evaluates the most recent monitor registered for name
// and returns its resulting state. The second result is false when no launch
// of name has been monitored.
func (s *Supervisor) Check(name string) (MonitorState, bool) {
	s.mu.Lock()
	m, ok := s.monitors[name]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	return m.check(), true
}

// MonitorStatus returns the state of the most recent monitor for name without
// evaluating it.
func (s *Supervisor) MonitorStatus(name string) (MonitorState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[name]
	if !ok {
		return 0, false
	}
	return m.state, true
}
