package logmux

import (
	"fmt"
	"sync"
	"time"

	"github.com/Paintersrp/protonctl/internal/runtime"
)

// Entry is a log line tagged with the launch that produced it.
type Entry struct {
	Timestamp time.Time
	Game      string
	LaunchID  string
	Message   string
	Level     string
	Source    string
	// Dropped is non-zero on synthesized entries that report how many lines
	// were discarded for the game.
	Dropped int
}

// Mux fans in log output from every running game and delivers it via a
// bounded channel. When downstream consumers cannot keep up and the output
// buffer would overflow, the mux drops lines and later emits a synthesized
// warning entry carrying the number of discarded lines.
type Mux struct {
	out chan Entry

	mu     sync.Mutex
	drops  map[string]dropRecord
	inputs sync.WaitGroup
}

type dropRecord struct {
	count    int
	launchID string
}

// New constructs a mux backed by a channel of the provided size. A size of
// zero results in a minimally buffered channel.
func New(size int) *Mux {
	if size <= 0 {
		size = 1
	}
	return &Mux{
		out:   make(chan Entry, size),
		drops: make(map[string]dropRecord),
	}
}

// Output exposes the muxed channel.
func (m *Mux) Output() <-chan Entry {
	return m.out
}

// Add registers the log channel of one launch. The mux consumes entries until
// the source channel is closed.
func (m *Mux) Add(game, launchID string, source <-chan runtime.LogEntry) {
	if source == nil {
		return
	}
	m.inputs.Add(1)
	go func() {
		defer m.inputs.Done()
		for line := range source {
			m.deliver(normalize(Entry{
				Game:     game,
				LaunchID: launchID,
				Message:  line.Message,
				Level:    line.Level,
				Source:   line.Source,
			}))
		}
	}()
}

// Close waits for all sources to be drained, emits any pending drop metadata,
// and closes the output channel.
func (m *Mux) Close() {
	m.inputs.Wait()
	m.flushDrops()
	close(m.out)
}

func (m *Mux) deliver(entry Entry) {
	if !m.flushPending(entry.Game) {
		m.recordDrop(entry.Game, entry.LaunchID, 1)
		return
	}
	if m.trySend(entry) {
		return
	}
	m.recordDrop(entry.Game, entry.LaunchID, 1)
}

func (m *Mux) flushPending(game string) bool {
	rec := m.takeDrops(game)
	if rec.count == 0 {
		return true
	}
	if m.trySend(synthesizeDrop(game, rec)) {
		return true
	}
	m.recordDrop(game, rec.launchID, rec.count)
	return false
}

func (m *Mux) takeDrops(game string) dropRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.drops[game]
	if rec.count != 0 {
		delete(m.drops, game)
	}
	return rec
}

func (m *Mux) recordDrop(game, launchID string, count int) {
	if count <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.drops[game]
	rec.count += count
	if launchID != "" {
		rec.launchID = launchID
	}
	m.drops[game] = rec
}

func (m *Mux) flushDrops() {
	m.mu.Lock()
	pending := m.drops
	m.drops = make(map[string]dropRecord)
	m.mu.Unlock()

	for game, rec := range pending {
		if rec.count == 0 {
			continue
		}
		m.out <- synthesizeDrop(game, rec)
	}
}

func (m *Mux) trySend(entry Entry) bool {
	select {
	case m.out <- entry:
		return true
	default:
		return false
	}
}

func normalize(entry Entry) Entry {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Source == "" {
		entry.Source = runtime.LogSourceStdout
	}
	if entry.Level == "" {
		if entry.Source == runtime.LogSourceStderr {
			entry.Level = "warn"
		} else {
			entry.Level = "info"
		}
	}
	return entry
}

func synthesizeDrop(game string, rec dropRecord) Entry {
	return Entry{
		Timestamp: time.Now(),
		Game:      game,
		LaunchID:  rec.launchID,
		Message:   fmt.Sprintf("dropped=%d", rec.count),
		Level:     "warn",
		Source:    runtime.LogSourceSystem,
		Dropped:   rec.count,
	}
}
