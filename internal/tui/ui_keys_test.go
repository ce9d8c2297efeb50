package tui

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Paintersrp/protonctl/internal/engine"
	"github.com/Paintersrp/protonctl/internal/game"
)

func newTestUI(t *testing.T, games ...game.Descriptor) *UI {
	t.Helper()
	app := tview.NewApplication()
	table := tview.NewTable().SetFixed(1, 1).SetSelectable(true, false)
	logs := tview.NewTextView()
	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(table, 0, 3, true).
		AddItem(logs, 0, 2, false)
	pages := tview.NewPages().AddPage("main", flex, true, true)

	ui := &UI{
		app:        app,
		pages:      pages,
		table:      table,
		logs:       logs,
		events:     make(chan engine.Event, 1),
		games:      make(map[string]*gameState),
		logsPretty: true,
		maxLogs:    defaultLogRetention,
		ctx:        context.Background(),
		done:       make(chan struct{}),
	}
	ui.setGames(games)

	app.SetRoot(pages, true)
	app.SetInputCapture(ui.handleKey)

	ui.refreshTableLocked()
	return ui
}

type recordingLauncher struct {
	launched chan launchCall
	killed   chan killCall
}

type launchCall struct {
	name       string
	useWrapper bool
}

type killCall struct {
	name   string
	prefix string
}

func newRecordingLauncher() *recordingLauncher {
	return &recordingLauncher{
		launched: make(chan launchCall, 4),
		killed:   make(chan killCall, 4),
	}
}

func (r *recordingLauncher) Launch(_ context.Context, desc game.Descriptor, useWrapper bool) (string, error) {
	r.launched <- launchCall{name: desc.Name, useWrapper: useWrapper}
	return "Started " + desc.Name, nil
}

func (r *recordingLauncher) Kill(name, prefix string) error {
	r.killed <- killCall{name: name, prefix: prefix}
	return nil
}

func TestHandleKeyRespectsOverlayFocus(t *testing.T) {
	ui := newTestUI(t)
	ui.app.SetFocus(ui.table)

	slash := tcell.NewEventKey(tcell.KeyRune, '/', tcell.ModNone)
	if res := ui.handleKey(slash); res != nil {
		t.Fatalf("expected filter shortcut to be consumed when table focused")
	}

	if _, ok := ui.app.GetFocus().(*tview.InputField); !ok {
		t.Fatalf("expected filter input to have focus, got %T", ui.app.GetFocus())
	}

	enter := tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)
	if res := ui.handleKey(enter); res != enter {
		t.Fatalf("expected Enter to bypass global handler when overlay focused")
	}

	runeEvent := tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)
	if res := ui.handleKey(runeEvent); res != runeEvent {
		t.Fatalf("expected rune to bypass global handler when overlay focused")
	}

	ui.pages.RemovePage(filterPageName)
	ui.app.SetFocus(ui.table)

	if res := ui.handleKey(runeEvent); res != runeEvent {
		t.Fatalf("expected rune to pass through when table focused")
	}
	if ui.logsFocused {
		t.Fatalf("expected logsFocused to match table focus")
	}
}

func TestHandleKeyAllowsLogShortcuts(t *testing.T) {
	ui := newTestUI(t)
	ui.app.SetFocus(ui.table)

	ui.toggleFocus()
	if ui.app.GetFocus() != ui.logs {
		t.Fatalf("expected logs to have focus after toggle")
	}

	slash := tcell.NewEventKey(tcell.KeyRune, '/', tcell.ModNone)
	if res := ui.handleKey(slash); res != nil {
		t.Fatalf("expected filter shortcut to be consumed when logs focused")
	}
}

func TestLaunchAndKillShortcutsDriveLauncher(t *testing.T) {
	launcher := newRecordingLauncher()
	ui := newTestUI(t, game.Descriptor{Name: "Hades", PrefixPath: "/prefixes/hades"})
	ui.launcher = launcher
	ui.app.SetFocus(ui.table)

	if res := ui.handleKey(tcell.NewEventKey(tcell.KeyRune, 'g', tcell.ModNone)); res != nil {
		t.Fatalf("expected gamemode toggle to be consumed")
	}
	if !ui.useWrapper {
		t.Fatalf("expected gamemode to be enabled")
	}

	ui.handleKey(tcell.NewEventKey(tcell.KeyRune, 'l', tcell.ModNone))
	select {
	case call := <-launcher.launched:
		if call.name != "Hades" || !call.useWrapper {
			t.Fatalf("unexpected launch %#v", call)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for launch")
	}

	ui.handleKey(tcell.NewEventKey(tcell.KeyRune, 'k', tcell.ModNone))
	select {
	case call := <-launcher.killed:
		if call.name != "Hades" || call.prefix != "/prefixes/hades" {
			t.Fatalf("unexpected kill %#v", call)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for kill")
	}
}
