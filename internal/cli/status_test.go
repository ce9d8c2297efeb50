package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/protonctl/internal/api"
	"github.com/Paintersrp/protonctl/internal/engine"
	"github.com/Paintersrp/protonctl/internal/probe"
)

func TestWriteStatusTable(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	report := &api.StatusReport{Games: []engine.Launch{
		{Name: "Hades", Pid: 4242, PrefixPath: "/prefixes/hades", StartedAt: now.Add(-90 * time.Second)},
		{Name: "Celeste", Pid: 77},
	}}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	if err := writeStatusTable(cmd, report, now); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", out.String())
	}
	if fields := strings.Fields(lines[1]); len(fields) != 4 || fields[0] != "Hades" || fields[1] != "4242" || fields[2] != "1m30s" {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if fields := strings.Fields(lines[2]); fields[2] != "-" || fields[3] != "-" {
		t.Fatalf("expected placeholders, got %q", lines[2])
	}
}

func TestWriteStatusTableEmpty(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	if err := writeStatusTable(cmd, &api.StatusReport{}, time.Now()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out.String() != "No games running.\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestWriteHealthTable(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	snap := probe.Snapshot{KernelSyncAvailable: true, RuntimePresent: true, RuntimeVersion: "umu-launcher 1.2.6"}
	if err := writeHealthTable(cmd, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	text := out.String()
	for _, want := range []string{"ntsync", "gamemode", "missing", "umu-launcher 1.2.6"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in:\n%s", want, text)
		}
	}
}

func TestEventPrinterWritesJSONWhenNotATerminal(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	printer := newEventPrinter(cmd, false)
	printer.Print(engine.Event{Game: "Hades", Type: engine.EventTypeLog, Message: "fixme: stub", Timestamp: time.Now()})
	if !strings.HasPrefix(out.String(), "{") || !strings.Contains(out.String(), `"game":"Hades"`) {
		t.Fatalf("expected JSON line, got %q", out.String())
	}
}
