package cli

import (
	"sync"

	"github.com/Paintersrp/protonctl/internal/engine"
)

// eventStream fans supervisor events out to subscribers. Log events are kept
// in a bounded backlog replayed to new subscribers. Terminal notifications
// are never dropped for a live subscriber; everything else is best effort.
type eventStream struct {
	mu       sync.Mutex
	closed   bool
	subs     map[*subscriber]struct{}
	backlog  []engine.Event
	capacity int

	quit     chan struct{}
	quitOnce sync.Once
}

type subscriber struct {
	ch       chan engine.Event
	done     chan struct{}
	doneOnce sync.Once
}

func (s *subscriber) cancel() {
	s.doneOnce.Do(func() { close(s.done) })
}

func newEventStream(capacity int) *eventStream {
	if capacity <= 0 {
		capacity = 1
	}
	return &eventStream{
		subs:     make(map[*subscriber]struct{}),
		capacity: capacity,
		quit:     make(chan struct{}),
	}
}

func (s *eventStream) Subscribe(buffer int) (<-chan engine.Event, func(), bool) {
	if buffer <= 0 {
		buffer = 1
	}
	sub := &subscriber{
		ch:   make(chan engine.Event, buffer),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		close(sub.ch)
		s.mu.Unlock()
		return sub.ch, func() {}, false
	}
	for _, evt := range s.backlog {
		select {
		case sub.ch <- evt:
		default:
		}
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	release := func() {
		// Unblocks a Publish waiting on this subscriber before taking the
		// lock it holds.
		sub.cancel()
		s.mu.Lock()
		if _, ok := s.subs[sub]; ok {
			delete(s.subs, sub)
			close(sub.ch)
		}
		s.mu.Unlock()
	}

	return sub.ch, release, true
}

func (s *eventStream) Publish(evt engine.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if evt.Type == engine.EventTypeLog {
		s.backlog = append(s.backlog, evt)
		if len(s.backlog) > s.capacity {
			s.backlog = s.backlog[len(s.backlog)-s.capacity:]
		}
	}

	for sub := range s.subs {
		if evt.Terminal() {
			select {
			case sub.ch <- evt:
			case <-sub.done:
			case <-s.quit:
			}
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

func (s *eventStream) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for sub := range s.subs {
		sub.cancel()
		close(sub.ch)
	}
	s.subs = nil
	s.backlog = nil
}
