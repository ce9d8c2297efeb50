package cli

import (
	"testing"
	"time"

	"github.com/Paintersrp/protonctl/internal/engine"
)

func TestEventStreamReplaysLogBacklog(t *testing.T) {
	stream := newEventStream(2)
	for _, msg := range []string{"one", "two", "three"} {
		stream.Publish(engine.Event{Game: "Hades", Type: engine.EventTypeLog, Message: msg})
	}
	stream.Publish(engine.Event{Game: "Hades", Type: engine.EventTypeRunning})

	ch, release, ok := stream.Subscribe(4)
	if !ok {
		t.Fatalf("expected subscription")
	}
	defer release()

	for _, want := range []string{"two", "three"} {
		select {
		case evt := <-ch:
			if evt.Message != want {
				t.Fatalf("expected backlog %q, got %q", want, evt.Message)
			}
		default:
			t.Fatalf("expected backlog entry %q", want)
		}
	}
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %#v", evt)
	default:
	}
}

func TestEventStreamTerminalEventsWaitForSubscriber(t *testing.T) {
	stream := newEventStream(1)
	ch, release, _ := stream.Subscribe(1)
	defer release()

	stream.Publish(engine.Event{Game: "Hades", Type: engine.EventTypeRunning})
	stream.Publish(engine.Event{Game: "Hades", Type: engine.EventTypeStopping})

	published := make(chan struct{})
	go func() {
		stream.Publish(engine.Event{Game: "Hades", Type: engine.EventTypeReady})
		close(published)
	}()

	select {
	case <-published:
		t.Fatalf("terminal event should wait for buffer space")
	case <-time.After(50 * time.Millisecond):
	}

	if evt := <-ch; evt.Type != engine.EventTypeRunning {
		t.Fatalf("expected running event first, got %s", evt.Type)
	}
	select {
	case evt := <-ch:
		if evt.Type != engine.EventTypeReady {
			t.Fatalf("expected terminal event, got %s", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for terminal event")
	}
	<-published
}

func TestEventStreamReleaseUnblocksPublisher(t *testing.T) {
	stream := newEventStream(1)
	_, release, _ := stream.Subscribe(1)
	stream.Publish(engine.Event{Game: "Hades", Type: engine.EventTypeRunning})

	published := make(chan struct{})
	go func() {
		stream.Publish(engine.Event{Game: "Hades", Type: engine.EventTypeReady})
		close(published)
	}()

	time.Sleep(20 * time.Millisecond)
	release()
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatalf("publisher still blocked after release")
	}
}

func TestEventStreamCloseEndsSubscriptions(t *testing.T) {
	stream := newEventStream(1)
	ch, release, _ := stream.Subscribe(1)
	stream.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected subscriber channel to close")
	}
	release()

	late, _, ok := stream.Subscribe(1)
	if ok {
		t.Fatalf("expected subscription after close to fail")
	}
	if _, open := <-late; open {
		t.Fatalf("expected closed channel after close")
	}
	stream.Publish(engine.Event{Type: engine.EventTypeReady})
}
