package logmux

import (
	"sort"
	"testing"

	"github.com/Paintersrp/protonctl/internal/runtime"
)

func TestMuxFansInMultipleSources(t *testing.T) {
	mux := New(8)
	src1 := make(chan runtime.LogEntry)
	src2 := make(chan runtime.LogEntry)

	mux.Add("Elden Ring", "l1", src1)
	mux.Add("Hades", "l2", src2)
	mux.Add("ignored", "l3", nil)

	go func() {
		src1 <- runtime.LogEntry{Message: "fsync: up and running", Source: runtime.LogSourceStderr}
		src1 <- runtime.LogEntry{Message: "wine: loaded"}
		close(src1)
	}()
	go func() {
		src2 <- runtime.LogEntry{Message: "hades ready", Source: runtime.LogSourceStdout}
		close(src2)
	}()

	go mux.Close()

	var got []string
	for entry := range mux.Output() {
		got = append(got, entry.Game+"|"+entry.Level+"|"+entry.Message)
		if entry.Timestamp.IsZero() {
			t.Fatalf("expected timestamp to be populated")
		}
	}
	sort.Strings(got)
	want := []string{
		"Elden Ring|info|wine: loaded",
		"Elden Ring|warn|fsync: up and running",
		"Hades|info|hades ready",
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected entries: %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestMuxEmitsDropMetaEntries(t *testing.T) {
	mux := New(1)
	src := make(chan runtime.LogEntry, 4)
	src <- runtime.LogEntry{Message: "one"}
	src <- runtime.LogEntry{Message: "two"}
	src <- runtime.LogEntry{Message: "three"}
	close(src)

	mux.Add("Hades", "launch-1", src)
	mux.inputs.Wait()

	first := <-mux.Output()
	if first.Message != "one" {
		t.Fatalf("expected first line to be delivered, got %q", first.Message)
	}

	go mux.Close()

	var dropped int
	for entry := range mux.Output() {
		if entry.Dropped == 0 {
			t.Fatalf("unexpected entry after overflow: %+v", entry)
		}
		if entry.LaunchID != "launch-1" || entry.Source != runtime.LogSourceSystem || entry.Level != "warn" {
			t.Fatalf("unexpected drop entry: %+v", entry)
		}
		dropped += entry.Dropped
	}
	if dropped != 2 {
		t.Fatalf("expected 2 dropped lines, got %d", dropped)
	}
}
