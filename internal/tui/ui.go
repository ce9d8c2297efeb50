package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Paintersrp/protonctl/internal/cliutil"
	"github.com/Paintersrp/protonctl/internal/engine"
	"github.com/Paintersrp/protonctl/internal/game"
	"github.com/Paintersrp/protonctl/internal/probe"
)

const (
	tableTitle          = "Games"
	logsTitle           = "Logs"
	filterPageName      = "filter"
	modalPageName       = "modal"
	defaultLogRetention = 500
	actionTimeout       = 30 * time.Second
)

// Launcher is the subset of the supervisor driven by the interface.
type Launcher interface {
	Launch(ctx context.Context, desc game.Descriptor, useWrapper bool) (string, error)
	Kill(name, prefixPath string) error
}

// HealthFunc returns a fresh capability snapshot.
type HealthFunc func(ctx context.Context) (probe.Snapshot, error)

// Option configures UI behaviour.
type Option func(*UI)

// WithMaxLogs sets the maximum number of log entries retained for each game.
func WithMaxLogs(n int) Option {
	return func(u *UI) {
		if n > 0 {
			u.maxLogs = n
		}
	}
}

// WithHealth enables the health overlay.
func WithHealth(fn HealthFunc) Option {
	return func(u *UI) {
		u.health = fn
	}
}

// WithWrapper sets the initial state of the gamemode toggle.
func WithWrapper(enabled bool) Option {
	return func(u *UI) {
		u.useWrapper = enabled
	}
}

// UI is the interactive launcher backed by tview.
type UI struct {
	app    *tview.Application
	pages  *tview.Pages
	table  *tview.Table
	logs   *tview.TextView
	events chan engine.Event

	launcher Launcher
	health   HealthFunc

	games map[string]*gameState

	visible     []string
	selected    string
	logsPretty  bool
	filter      string
	filterExpr  *regexp.Regexp
	logsFocused bool
	maxLogs     int
	useWrapper  bool
	selecting   bool

	mu sync.RWMutex

	cancelMu sync.Mutex
	cancel   context.CancelFunc
	ctx      context.Context

	wg        sync.WaitGroup
	stopOnce  sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

type gameState struct {
	name      string
	desc      *game.Descriptor
	startedAt time.Time
	lastEvent time.Time
	state     engine.EventType
	running   bool
	pid       int
	launches  int
	message   string

	logs []cliutil.LogRecord
}

// New constructs a UI listing games and driving launcher.
func New(games []game.Descriptor, launcher Launcher, opts ...Option) *UI {
	app := tview.NewApplication()
	table := tview.NewTable().SetFixed(1, 1).SetSelectable(true, false)
	table.SetBorder(true).SetTitle(tableTitle)

	logs := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	logs.SetBorder(true).SetTitle(logsTitle)
	logs.SetChangedFunc(func() {
		app.Draw()
	})

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(table, 0, 3, true).
		AddItem(logs, 0, 2, false)

	pages := tview.NewPages().AddPage("main", flex, true, true)

	ui := &UI{
		app:        app,
		pages:      pages,
		table:      table,
		logs:       logs,
		events:     make(chan engine.Event, 256),
		launcher:   launcher,
		games:      make(map[string]*gameState),
		logsPretty: true,
		maxLogs:    defaultLogRetention,
		ctx:        context.Background(),
		done:       make(chan struct{}),
	}
	ui.setGames(games)

	for _, opt := range opts {
		opt(ui)
	}

	table.SetSelectionChangedFunc(func(row, column int) {
		// Select is also called from refreshTableLocked with mu held.
		if ui.selecting {
			return
		}
		ui.mu.Lock()
		defer ui.mu.Unlock()
		ui.syncSelection(row)
		ui.renderLogsLocked()
	})

	app.SetRoot(pages, true)
	app.SetInputCapture(ui.handleKey)

	ui.mu.Lock()
	ui.refreshTableLocked()
	ui.mu.Unlock()

	return ui
}

func (u *UI) setGames(games []game.Descriptor) {
	for i := range games {
		desc := games[i].Clone()
		u.games[desc.Name] = &gameState{name: desc.Name, desc: &desc}
	}
}

// EventSink exposes the channel where supervisor events should be delivered.
func (u *UI) EventSink() chan<- engine.Event {
	return u.events
}

// CloseEvents releases the event channel, allowing internal goroutines to exit cleanly.
func (u *UI) CloseEvents() {
	u.closeOnce.Do(func() {
		close(u.events)
	})
}

// Done returns a channel that is closed when the UI stops.
func (u *UI) Done() <-chan struct{} {
	return u.done
}

// Run starts the tview application and processes incoming events until Stop is invoked
// or the provided context is cancelled.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	u.cancelMu.Lock()
	u.cancel = cancel
	u.ctx = ctx
	u.cancelMu.Unlock()

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.consumeEvents(ctx)
	}()

	go func() {
		<-ctx.Done()
		u.Stop()
	}()

	err := u.app.Run()

	u.cancelMu.Lock()
	cancel = u.cancel
	u.cancel = nil
	u.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}

	u.wg.Wait()
	u.Stop()

	return err
}

// Stop terminates the application loop and releases resources.
func (u *UI) Stop() {
	u.stopOnce.Do(func() {
		u.cancelMu.Lock()
		cancel := u.cancel
		u.cancel = nil
		u.cancelMu.Unlock()
		if cancel != nil {
			cancel()
		}
		u.app.Stop()
		close(u.done)
	})
}

func (u *UI) runContext() context.Context {
	u.cancelMu.Lock()
	defer u.cancelMu.Unlock()
	return u.ctx
}

func (u *UI) consumeEvents(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-u.events:
			if !ok {
				return
			}
			u.applyEvent(evt)
		case <-ticker.C:
			u.queueRefresh(false)
		}
	}
}

// handleKey dispatches global shortcuts while the table or the log view has
// focus. Overlays receive their input untouched.
func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	focus := u.app.GetFocus()
	if focus != u.table && focus != u.logs {
		return event
	}
	switch event.Key() {
	case tcell.KeyEnter:
		if focus == u.table && !u.logsFocused {
			u.launchSelected()
			return nil
		}
		u.toggleFocus()
		return nil
	case tcell.KeyTab:
		u.toggleFocus()
		return nil
	case tcell.KeyUp, tcell.KeyDown:
		return event
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			go u.Stop()
			return nil
		case '/':
			u.showFilterPrompt()
			return nil
		case 'j', 'J':
			u.toggleJSON()
			return nil
		case 'l', 'L':
			u.launchSelected()
			return nil
		case 'k', 'K':
			u.killSelected()
			return nil
		case 'g', 'G':
			u.toggleWrapper()
			return nil
		case 'h', 'H':
			u.showHealth()
			return nil
		}
	}
	return event
}

func (u *UI) toggleFocus() {
	if u.logsFocused {
		u.app.SetFocus(u.table)
	} else {
		u.app.SetFocus(u.logs)
	}
	u.logsFocused = !u.logsFocused
}

func (u *UI) toggleJSON() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.logsPretty = !u.logsPretty
	u.renderLogsLocked()
}

func (u *UI) toggleWrapper() {
	u.mu.Lock()
	u.useWrapper = !u.useWrapper
	u.refreshTableLocked()
	u.mu.Unlock()
}

func (u *UI) selectedGame() (*gameState, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	state := u.games[u.selected]
	return state, state != nil
}

func (u *UI) launchSelected() {
	state, ok := u.selectedGame()
	if !ok || u.launcher == nil {
		return
	}
	if state.desc == nil {
		u.showMessage(fmt.Sprintf("%s is not a configured game", state.name))
		return
	}
	desc := state.desc.Clone()
	u.mu.RLock()
	useWrapper := u.useWrapper
	u.mu.RUnlock()

	go func() {
		ctx, cancel := context.WithTimeout(u.runContext(), actionTimeout)
		defer cancel()
		if _, err := u.launcher.Launch(ctx, desc, useWrapper); err != nil {
			u.app.QueueUpdateDraw(func() {
				u.showMessage(fmt.Sprintf("Launch failed: %v", err))
			})
		}
	}()
}

func (u *UI) killSelected() {
	state, ok := u.selectedGame()
	if !ok || u.launcher == nil {
		return
	}
	var prefix string
	if state.desc != nil {
		prefix = state.desc.PrefixPath
	}
	name := state.name
	go func() {
		_ = u.launcher.Kill(name, prefix)
	}()
}

func (u *UI) showHealth() {
	if u.health == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(u.runContext(), actionTimeout)
		defer cancel()
		snap, err := u.health(ctx)
		text := formatHealth(snap)
		if err != nil {
			text = fmt.Sprintf("Health check failed: %v", err)
		}
		u.app.QueueUpdateDraw(func() {
			u.showMessage(text)
		})
	}()
}

func formatHealth(snap probe.Snapshot) string {
	mark := func(ok bool) string {
		if ok {
			return "ok"
		}
		return "missing"
	}
	version := snap.RuntimeVersion
	if version == "" {
		version = "-"
	}
	return strings.Join([]string{
		"UMU: " + mark(snap.RuntimePresent) + " (" + version + ")",
		"GameMode: " + mark(snap.SchedulerWrapperAvailable),
		"NTSync: " + mark(snap.KernelSyncAvailable),
		"Vulkan: " + mark(snap.GraphicsAPIAvailable),
	}, "\n")
}

func (u *UI) showFilterPrompt() {
	u.mu.RLock()
	current := u.filter
	u.mu.RUnlock()

	input := tview.NewInputField().
		SetLabel("Regex filter: ").
		SetText(current).
		SetFieldWidth(40)

	form := tview.NewForm().
		AddFormItem(input).
		AddButton("Apply", func() {
			u.applyFilter(input.GetText())
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		}).
		AddButton("Cancel", func() {
			u.pages.RemovePage(filterPageName)
			u.app.SetFocus(u.table)
		})

	form.SetBorder(true).SetTitle("Filter Games")

	grid := tview.NewGrid().
		SetColumns(0, 60, 0).
		SetRows(0, 7, 0).
		AddItem(form, 1, 1, 1, 1, 0, 0, true)

	u.logsFocused = false
	u.pages.AddPage(filterPageName, grid, true, true)
	u.app.SetFocus(input)
}

func (u *UI) applyFilter(expr string) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		u.mu.Lock()
		u.filter = ""
		u.filterExpr = nil
		u.mu.Unlock()
		u.queueRefresh(true)
		return
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		u.showMessage(fmt.Sprintf("Invalid filter: %v", err))
		return
	}

	u.mu.Lock()
	u.filter = expr
	u.filterExpr = re
	u.mu.Unlock()
	u.queueRefresh(true)
}

func (u *UI) showMessage(message string) {
	modal := tview.NewModal().
		SetText(message).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			u.pages.RemovePage(modalPageName)
			u.app.SetFocus(u.table)
		})

	u.pages.RemovePage(filterPageName)
	u.pages.RemovePage(modalPageName)
	u.logsFocused = false
	u.pages.AddPage(modalPageName, modal, true, true)
	u.app.SetFocus(modal)
}

func (u *UI) applyEvent(evt engine.Event) {
	u.mu.Lock()
	updateLogs := u.applyEventLocked(evt)
	u.mu.Unlock()

	u.queueRefresh(updateLogs)
}

func (u *UI) applyEventLocked(evt engine.Event) bool {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if evt.Game == "" {
		return false
	}

	state := u.games[evt.Game]
	if state == nil {
		state = &gameState{name: evt.Game}
		u.games[evt.Game] = state
	}
	state.lastEvent = evt.Timestamp

	switch evt.Type {
	case engine.EventTypeLog:
		record := cliutil.NewLogRecord(evt)
		state.logs = append(state.logs, record)
		if len(state.logs) > u.maxLogs {
			trim := len(state.logs) - u.maxLogs
			state.logs = append([]cliutil.LogRecord(nil), state.logs[trim:]...)
		}
	case engine.EventTypeSweep:
		state.message = formatEventMessage(evt)
	default:
		state.state = evt.Type
		state.message = formatEventMessage(evt)
		switch evt.Type {
		case engine.EventTypeRunning:
			state.running = true
			state.pid = evt.Pid
			state.startedAt = evt.Timestamp
			state.launches++
		case engine.EventTypeReady:
			state.running = false
			state.pid = 0
		}
	}

	return state.name == u.selected || u.selected == ""
}

func formatEventMessage(evt engine.Event) string {
	msg := evt.Message
	if evt.Err != nil {
		if msg == "" {
			msg = evt.Err.Error()
		} else if msg != evt.Err.Error() {
			msg = msg + ": " + evt.Err.Error()
		}
	}
	if evt.Reason != "" {
		if msg == "" {
			return evt.Reason
		}
		return fmt.Sprintf("%s (%s)", msg, evt.Reason)
	}
	return msg
}

func (u *UI) queueRefresh(updateLogs bool) {
	u.app.QueueUpdateDraw(func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.refreshTableLocked()
		if updateLogs {
			u.renderLogsLocked()
		}
	})
}

func (u *UI) refreshTableLocked() {
	u.table.Clear()

	headers := []string{"GAME", "STATE", "FLAGS", "PID", "UPTIME", "MESSAGE"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold)
		u.table.SetCell(0, col, cell)
	}

	names := make([]string, 0, len(u.games))
	for name := range u.games {
		if u.filterExpr != nil && !u.filterExpr.MatchString(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	u.visible = names

	title := tableTitle
	if u.filter != "" {
		title = fmt.Sprintf("%s /%s/", title, u.filter)
	}
	if u.useWrapper {
		title += " [gamemode]"
	}
	u.table.SetTitle(title)

	for row, name := range names {
		state := u.games[name]
		uptime := "-"
		pid := "-"
		if state.running {
			if !state.startedAt.IsZero() {
				uptime = time.Since(state.startedAt).Truncate(time.Second).String()
			}
			if state.pid > 0 {
				pid = fmt.Sprintf("%d", state.pid)
			}
		}
		flags := "-"
		if state.desc != nil {
			if f := state.desc.Flags(); len(f) > 0 {
				flags = strings.Join(f, ",")
			}
		}
		message := state.message
		if len(message) > 80 {
			message = message[:77] + "..."
		}

		values := []string{
			name,
			formatState(state),
			flags,
			pid,
			uptime,
			message,
		}
		for col, value := range values {
			cell := tview.NewTableCell(value)
			if col == 0 {
				cell = cell.SetReference(name)
			}
			u.table.SetCell(row+1, col, cell)
		}
	}

	u.ensureSelectionLocked()
}

func (u *UI) renderLogsLocked() {
	u.logs.Clear()
	var state *gameState
	if u.selected != "" {
		state = u.games[u.selected]
	}
	if state == nil {
		u.logs.SetTitle(logsTitle)
		return
	}

	u.logs.SetTitle(fmt.Sprintf("%s (%s)", logsTitle, state.name))

	for _, record := range state.logs {
		var data []byte
		var err error
		if u.logsPretty {
			data, err = json.MarshalIndent(record, "", "  ")
		} else {
			data, err = json.Marshal(record)
		}
		if err != nil {
			fmt.Fprintf(u.logs, "{\"error\":\"%v\"}\n", err)
			continue
		}
		fmt.Fprintf(u.logs, "%s\n", tview.Escape(string(data)))
	}
	u.logs.ScrollToEnd()
}

func (u *UI) ensureSelectionLocked() {
	u.selecting = true
	defer func() { u.selecting = false }()

	if len(u.visible) == 0 {
		u.selected = ""
		u.table.Select(0, 0)
		return
	}

	idx := -1
	for i, name := range u.visible {
		if name == u.selected {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = 0
		u.selected = u.visible[0]
	}
	u.table.Select(idx+1, 0)
}

func (u *UI) syncSelection(row int) {
	if row <= 0 || row-1 >= len(u.visible) {
		return
	}
	u.selected = u.visible[row-1]
}

func formatState(state *gameState) string {
	if state.running {
		return "Running"
	}
	switch state.state {
	case "":
		return "-"
	case engine.EventTypeReady:
		return "Stopped"
	}
	s := string(state.state)
	return strings.ToUpper(s[:1]) + s[1:]
}
