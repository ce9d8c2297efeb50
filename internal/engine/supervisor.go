package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Paintersrp/protonctl/internal/envbuild"
	"github.com/Paintersrp/protonctl/internal/game"
	"github.com/Paintersrp/protonctl/internal/logmux"
	"github.com/Paintersrp/protonctl/internal/metrics"
	"github.com/Paintersrp/protonctl/internal/runtime"
)

const (
	// DefaultPollInterval is how often an exit monitor checks its process.
	DefaultPollInterval = 2 * time.Second
	defaultLogBuffer    = 512
	sweepTimeout        = 15 * time.Second
)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithManualPolling disables the background monitor loops. Monitors are then
// only evaluated through Check, which keeps tests independent of wall-clock
// sleeps.
func WithManualPolling() Option {
	return func(s *Supervisor) {
		s.manual = true
	}
}

// WithSweeper sets the component used to stop prefix session processes on
// kill. A nil sweeper disables the cascade.
func WithSweeper(sw Sweeper) Option {
	return func(s *Supervisor) {
		s.sweeper = sw
	}
}

// WithClientInstallPath pins the gaming platform install path instead of
// detecting it on each launch.
func WithClientInstallPath(path string) Option {
	return func(s *Supervisor) {
		s.clientPath = path
	}
}

// WithEnviron sets the base environment the composed variables are applied
// on top of. It defaults to os.Environ.
func WithEnviron(fn func() []string) Option {
	return func(s *Supervisor) {
		if fn != nil {
			s.environ = fn
		}
	}
}

// Launch describes one supervised process.
type Launch struct {
	Name       string    `json:"name"`
	LaunchID   string    `json:"launch_id"`
	Pid        int       `json:"pid"`
	PrefixPath string    `json:"prefix_path"`
	StartedAt  time.Time `json:"started_at"`
}

// Supervisor owns the registry of running games. Every read and write of the
// registry happens under a single mutex which is never held across a
// blocking wait.
type Supervisor struct {
	runtime runtime.Runtime
	events  chan<- Event
	sweeper Sweeper

	interval   time.Duration
	manual     bool
	clientPath string
	environ    func() []string
	lookPath   func(string) (string, error)

	logs *logmux.Mux

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once

	mu       sync.Mutex
	entries  map[string]*entry
	monitors map[string]*exitMonitor
}

type entry struct {
	launchID  string
	desc      game.Descriptor
	handle    runtime.Handle
	startedAt time.Time
	monitor   *exitMonitor
}

// New constructs a Supervisor that spawns processes through rt and publishes
// lifecycle events on events. A nil events channel discards notifications.
func New(rt runtime.Runtime, events chan<- Event, opts ...Option) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		runtime:  rt,
		events:   events,
		sweeper:  NewCascadeTerminator(),
		interval: DefaultPollInterval,
		environ:  os.Environ,
		lookPath: exec.LookPath,
		logs:     logmux.New(defaultLogBuffer),
		ctx:      ctx,
		cancel:   cancel,
		entries:  make(map[string]*entry),
		monitors: make(map[string]*exitMonitor),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.forwardLogs()
	return s
}

// Launch builds the command for desc, spawns it and registers the handle under
// desc.Name. An exit monitor is started for every successful launch.
func (s *Supervisor) Launch(ctx context.Context, desc game.Descriptor, useWrapper bool) (string, error) {
	name := desc.Name
	if strings.TrimSpace(name) == "" {
		metrics.ObserveLaunch(metrics.LaunchInvalid)
		return "", &envbuild.ValidationError{Field: "name"}
	}
	if s.Running(name) {
		metrics.ObserveLaunch(metrics.LaunchRejected)
		return "", fmt.Errorf("launch %s: %w", name, ErrAlreadyRunning)
	}
	if s.manual {
		// Without a loop, a monitor for a previous launch that was killed
		// would stop being addressable once it is replaced below.
		s.Check(name)
	}

	cmd, err := envbuild.Build(desc, envbuild.Options{UseWrapper: useWrapper, ClientInstallPath: s.clientPath})
	if err != nil {
		metrics.ObserveLaunch(metrics.LaunchInvalid)
		s.emit(newEvent(name, "", EventTypeError, err.Error(), ReasonRejected, err))
		return "", fmt.Errorf("launch %s: %w", name, err)
	}

	launchID := uuid.NewString()
	s.emit(newEvent(name, launchID, EventTypeStarting, strings.Join(cmd.Argv(), " "), "", nil))

	handle, err := s.runtime.Start(ctx, runtime.StartSpec{
		Name: name,
		Path: cmd.Path,
		Args: cmd.Args,
		Env:  cmd.Environ(s.environ()),
		Dir:  cmd.Dir,
	})
	if err != nil {
		var spawnErr *runtime.SpawnError
		if !errors.As(err, &spawnErr) && ctx.Err() == nil {
			err = &runtime.SpawnError{Name: name, Path: cmd.Path, Err: err}
		}
		metrics.ObserveLaunch(metrics.LaunchFailed)
		s.emit(newEvent(name, launchID, EventTypeError, err.Error(), ReasonSpawnFailure, err))
		return "", err
	}

	s.mu.Lock()
	if _, exists := s.entries[name]; exists {
		s.mu.Unlock()
		// Lost a race with a concurrent launch of the same game.
		_ = handle.Terminate()
		drainLogs(handle.Logs())
		metrics.ObserveLaunch(metrics.LaunchRejected)
		return "", fmt.Errorf("launch %s: %w", name, ErrAlreadyRunning)
	}
	mon := newExitMonitor(s, name, launchID)
	s.entries[name] = &entry{
		launchID:  launchID,
		desc:      desc.Clone(),
		handle:    handle,
		startedAt: time.Now(),
		monitor:   mon,
	}
	s.monitors[name] = mon
	s.mu.Unlock()

	s.logs.Add(name, launchID, handle.Logs())
	metrics.ObserveLaunch(metrics.LaunchStarted)
	metrics.SetGameRunning(name, true)

	evt := newEvent(name, launchID, EventTypeRunning, fmt.Sprintf("pid %d", handle.Pid()), ReasonLaunched, nil)
	evt.Pid = handle.Pid()
	s.emit(evt)

	if !s.manual {
		s.wg.Add(1)
		go mon.run(s.ctx)
	}
	return fmt.Sprintf("Started %s", name), nil
}

// Kill removes and terminates the registry entry for name when present and
// then sweeps session processes bound to prefixPath in the background. It is
// idempotent and always succeeds; the sweep outcome is reported through
// events only.
func (s *Supervisor) Kill(name, prefixPath string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	var degraded bool
	if ok {
		delete(s.entries, name)
		degraded = e.monitor.state == MonitorDegraded
	}
	s.mu.Unlock()

	var runtimePath string
	if ok {
		runtimePath = e.desc.RuntimePath
		if prefixPath == "" {
			prefixPath = e.desc.PrefixPath
		}
		s.emit(newEvent(name, e.launchID, EventTypeStopping, "terminating", ReasonKilled, nil))
		if err := e.handle.Terminate(); err != nil {
			s.emit(newEvent(name, e.launchID, EventTypeError, err.Error(), ReasonTerminateFail, err))
		}
		metrics.SetGameRunning(name, false)
		// A degraded monitor has already stopped, so nobody else will
		// report the end of this launch.
		if degraded {
			s.notifyTerminal(name, e.launchID, ReasonKilled)
		}
	}

	s.sweep(name, SweepTarget{PrefixPath: prefixPath, RuntimePath: runtimePath})
	return nil
}

// Running reports whether name has an actively supervised process.
func (s *Supervisor) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

// List returns the supervised processes sorted by name.
func (s *Supervisor) List() []Launch {
	s.mu.Lock()
	out := make([]Launch, 0, len(s.entries))
	for name, e := range s.entries {
		out = append(out, Launch{
			Name:       name,
			LaunchID:   e.launchID,
			Pid:        e.handle.Pid(),
			PrefixPath: e.desc.PrefixPath,
			StartedAt:  e.startedAt,
		})
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close stops monitor loops and in-flight sweeps. Running games are left
// untouched.
func (s *Supervisor) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

func (s *Supervisor) sweep(name string, target SweepTarget) {
	if s.sweeper == nil || target.PrefixPath == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, sweepTimeout)
		defer cancel()
		if err := s.sweeper.Sweep(ctx, target); err != nil {
			metrics.ObserveSweep(false)
			evt := newEvent(name, "", EventTypeSweep, fmt.Sprintf("prefix %s: %v", target.PrefixPath, err), ReasonSweepFailed, err)
			evt.Level = "warn"
			s.emit(evt)
			return
		}
		metrics.ObserveSweep(true)
		s.emit(newEvent(name, "", EventTypeSweep, "prefix "+target.PrefixPath, ReasonSweepComplete, nil))
	}()
}

func (s *Supervisor) notifyTerminal(name, launchID, reason string) {
	metrics.ObserveTermination(reason)
	evt := newEvent(name, launchID, EventTypeReady, name+" process ended", reason, nil)
	if s.events == nil {
		return
	}
	select {
	case s.events <- evt:
	case <-s.ctx.Done():
	}
}

// emit delivers informational events without blocking the caller.
func (s *Supervisor) emit(evt Event) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- evt:
	default:
	}
}

func (s *Supervisor) forwardLogs() {
	defer s.wg.Done()
	out := s.logs.Output()
	for {
		select {
		case <-s.ctx.Done():
			return
		case line, ok := <-out:
			if !ok {
				return
			}
			if s.events == nil {
				continue
			}
			evt := Event{
				Timestamp: line.Timestamp,
				Game:      line.Game,
				LaunchID:  line.LaunchID,
				Type:      EventTypeLog,
				Message:   line.Message,
				Level:     line.Level,
				Source:    line.Source,
			}
			if line.Dropped > 0 {
				evt.Reason = ReasonLogsDropped
			}
			select {
			case s.events <- evt:
			case <-s.ctx.Done():
				return
			}
		}
	}
}

func drainLogs(ch <-chan runtime.LogEntry) {
	if ch == nil {
		return
	}
	go func() {
		for range ch {
		}
	}()
}
