package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/logger"
	"github.com/bnema/displaytoggle/internal/state"
)

// Controller is the part of the display manager the menu drives. Every call
// is made from a tea.Cmd, never from Update, because state notifications are
// delivered while the manager holds its lock.
type Controller interface {
	Snapshot(ctx context.Context) (state.State, error)
	SetDisplay(ctx context.Context, id display.ID, enabled bool) error
	RestoreAll(ctx context.Context) error
	SetAutoDisable(ctx context.Context, enabled bool) error
	SetLaunchAtLogin(ctx context.Context, enabled bool) error
	Subscribe(fn func(state.State)) func()
}

// MenuOptions tune the menu for the surface it runs on
type MenuOptions struct {
	Title         string
	ToggleDelay   time.Duration
	CallTimeout   time.Duration
	ExitLabel     string
	RestoreOnExit bool
	Width         int
}

// DefaultMenuOptions returns the options of the local menu
func DefaultMenuOptions() MenuOptions {
	return MenuOptions{
		Title:         "displaytoggle",
		ToggleDelay:   500 * time.Millisecond,
		CallTimeout:   10 * time.Second,
		ExitLabel:     "Exit Application",
		RestoreOnExit: true,
		Width:         48,
	}
}

type menuView int

const (
	viewMain menuView = iota
	viewPreferences
)

type itemKind int

const (
	itemDisplay itemKind = iota
	itemAllOn
	itemPreferences
	itemExit
	itemAutoDisable
	itemLaunchAtLogin
	itemBack
)

type menuItem struct {
	kind    itemKind
	display display.Display
}

type preference int

const (
	prefAutoDisable preference = iota
	prefLaunchAtLogin
)

// Messages
type (
	stateMsg       struct{ state state.State }
	snapshotMsg    struct{ state state.State }
	stateErrMsg    struct{ err error }
	applyToggleMsg struct {
		id      display.ID
		enabled bool
	}
	toggleDoneMsg struct {
		id      display.ID
		name    string
		enabled bool
		err     error
	}
	restoreDoneMsg struct{ err error }
	prefDoneMsg    struct {
		pref  preference
		value bool
		err   error
	}
	exitDoneMsg struct{ err error }
)

// pendingToggle is a switch flipped by the user whose change has not been
// applied yet
type pendingToggle struct {
	enabled bool
	count   int
}

// MenuModel is the display menu: one switch per display, a restore action,
// a preferences view and exit
type MenuModel struct {
	base *BaseUI
	ctrl Controller
	opts MenuOptions

	feed        chan state.State
	done        chan struct{}
	closeMu     sync.Mutex
	unsubscribe func()

	state    state.State
	loaded   bool
	view     menuView
	cursor   int
	pending  map[display.ID]pendingToggle
	prefBusy map[preference]bool
	busy     int
	exiting  bool

	status   *StatusBar
	message  Message
	activity []LogEntry
	width    int
}

// NewMenuModel creates a menu driving ctrl
func NewMenuModel(ctrl Controller, opts MenuOptions) *MenuModel {
	defaults := DefaultMenuOptions()
	if opts.Title == "" {
		opts.Title = defaults.Title
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaults.CallTimeout
	}
	if opts.ExitLabel == "" {
		opts.ExitLabel = defaults.ExitLabel
	}
	if opts.Width <= 0 {
		opts.Width = defaults.Width
	}

	return &MenuModel{
		ctrl:     ctrl,
		opts:     opts,
		feed:     make(chan state.State, 1),
		done:     make(chan struct{}),
		pending:  make(map[display.ID]pendingToggle),
		prefBusy: make(map[preference]bool),
		status:   NewStatusBar(opts.Title),
		width:    opts.Width,
	}
}

// SetBase implements UIModel
func (m *MenuModel) SetBase(base *BaseUI) {
	m.base = base
}

// OnShutdown implements UIModel
func (m *MenuModel) OnShutdown() error {
	m.Close()
	return nil
}

// Close stops listening for state changes. It is safe to call more than once.
func (m *MenuModel) Close() {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

// Init implements tea.Model
func (m *MenuModel) Init() tea.Cmd {
	m.closeMu.Lock()
	select {
	case <-m.done:
	default:
		m.unsubscribe = m.ctrl.Subscribe(m.push)
	}
	m.closeMu.Unlock()

	m.status.Busy = true
	return tea.Batch(m.status.Init(), m.load(), m.waitForState())
}

// push hands the latest state to the event loop without ever blocking the
// publisher. Only the most recent state is kept.
func (m *MenuModel) push(s state.State) {
	for {
		select {
		case m.feed <- s:
			return
		default:
		}
		select {
		case <-m.feed:
		default:
		}
	}
}

func (m *MenuModel) waitForState() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-m.feed:
			return stateMsg{state: s}
		case <-m.done:
			return nil
		}
	}
}

func (m *MenuModel) load() tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		s, err := m.ctrl.Snapshot(ctx)
		if err != nil {
			return stateErrMsg{err: err}
		}
		return snapshotMsg{state: s}
	})
}

// call runs fn off the event loop with a bounded context
func (m *MenuModel) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	timeout := m.opts.CallTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fn(ctx)
	}
}

// Update implements tea.Model
func (m *MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = min(msg.Width, m.opts.Width)
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case stateMsg:
		m.setState(msg.state)
		return m, m.waitForState()

	case snapshotMsg:
		// A notification may already have delivered something newer
		if !m.loaded {
			m.setState(msg.state)
		}
		return m, nil

	case stateErrMsg:
		m.loaded = true
		m.setMessage(MessageError, fmt.Sprintf("Could not read displays: %v", msg.err))
		m.refreshStatus()
		return m, nil

	case applyToggleMsg:
		m.busy++
		m.refreshStatus()
		id, enabled := msg.id, msg.enabled
		name := m.displayName(id)
		return m, m.call(func(ctx context.Context) tea.Msg {
			err := m.ctrl.SetDisplay(ctx, id, enabled)
			return toggleDoneMsg{id: id, name: name, enabled: enabled, err: err}
		})

	case toggleDoneMsg:
		m.busy--
		m.settleToggle(msg)
		m.refreshStatus()
		return m, nil

	case restoreDoneMsg:
		m.busy--
		if msg.err != nil {
			m.setMessage(MessageError, fmt.Sprintf("Restore failed: %v", msg.err))
			m.log("error", fmt.Sprintf("Restore failed: %v", msg.err))
		} else {
			m.setMessage(MessageSuccess, "All displays on")
			m.log("info", "Restored all displays")
		}
		m.refreshStatus()
		return m, nil

	case prefDoneMsg:
		m.busy--
		m.settlePreference(msg)
		m.refreshStatus()
		return m, nil

	case exitDoneMsg:
		if msg.err != nil {
			logger.Warnf("Restore before exit failed: %v", msg.err)
		}
		return m, m.quit()
	}

	var cmd tea.Cmd
	m.status, cmd = m.status.Update(msg)
	return m, cmd
}

func (m *MenuModel) setState(s state.State) {
	m.state = s
	m.loaded = true
	m.clampCursor()
	m.refreshStatus()
}

func (m *MenuModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.exiting {
		return nil
	}

	key := msg.String()
	if key == "ctrl+c" {
		return m.quit()
	}

	items := m.items()
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j", "tab":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case "enter", " ":
		if m.cursor < len(items) {
			return m.activate(items[m.cursor])
		}
	case "a":
		if m.view == viewMain {
			return m.restoreAll()
		}
	case "p":
		if m.view == viewMain {
			m.showView(viewPreferences)
		}
	case "esc", "backspace", "left", "h":
		if m.view == viewPreferences {
			m.showView(viewMain)
		}
	case "q":
		if m.view == viewPreferences {
			m.showView(viewMain)
			return nil
		}
		return m.exit()
	}
	return nil
}

func (m *MenuModel) activate(item menuItem) tea.Cmd {
	switch item.kind {
	case itemDisplay:
		return m.toggle(item.display)
	case itemAllOn:
		return m.restoreAll()
	case itemPreferences:
		m.showView(viewPreferences)
	case itemExit:
		return m.exit()
	case itemAutoDisable:
		return m.setPreference(prefAutoDisable, !m.state.AutoDisableBuiltin)
	case itemLaunchAtLogin:
		return m.setPreference(prefLaunchAtLogin, !m.state.LaunchAtLogin)
	case itemBack:
		m.showView(viewMain)
	}
	return nil
}

// toggle flips the switch of d and applies it after the toggle delay
func (m *MenuModel) toggle(d display.Display) tea.Cmd {
	if m.switchDisabled(d) {
		m.setMessage(MessageWarning, "The last display that is on cannot be turned off")
		return nil
	}

	enabled := !d.On
	p := m.pending[d.ID]
	p.enabled = enabled
	p.count++
	m.pending[d.ID] = p
	m.message = Message{}

	id := d.ID
	return tea.Tick(m.opts.ToggleDelay, func(time.Time) tea.Msg {
		return applyToggleMsg{id: id, enabled: enabled}
	})
}

func (m *MenuModel) settleToggle(msg toggleDoneMsg) {
	if p, ok := m.pending[msg.id]; ok {
		p.count--
		if p.count <= 0 {
			delete(m.pending, msg.id)
		} else {
			m.pending[msg.id] = p
		}
	}

	if msg.err != nil {
		if errors.Is(msg.err, display.ErrLastDisplayOn) {
			m.setMessage(MessageWarning, "The last display that is on cannot be turned off")
		} else {
			m.setMessage(MessageError, fmt.Sprintf("Could not turn %s %s", msg.name, onOff(msg.enabled)))
		}
		m.log("error", msg.err.Error())
		return
	}

	// The store already holds the new value, its notification may still be
	// on the way
	for i := range m.state.Displays {
		if m.state.Displays[i].ID == msg.id {
			m.state.Displays[i].On = msg.enabled
		}
	}
	m.log("info", fmt.Sprintf("Turned %s %s", msg.name, onOff(msg.enabled)))
}

func (m *MenuModel) restoreAll() tea.Cmd {
	m.busy++
	m.refreshStatus()
	return m.call(func(ctx context.Context) tea.Msg {
		return restoreDoneMsg{err: m.ctrl.RestoreAll(ctx)}
	})
}

// setPreference flips a preference switch right away and reverts it if
// persisting the value fails
func (m *MenuModel) setPreference(pref preference, value bool) tea.Cmd {
	if m.prefBusy[pref] {
		return nil
	}
	m.prefBusy[pref] = true
	m.busy++
	m.applyPreference(pref, value)
	m.refreshStatus()

	return m.call(func(ctx context.Context) tea.Msg {
		var err error
		switch pref {
		case prefAutoDisable:
			err = m.ctrl.SetAutoDisable(ctx, value)
		case prefLaunchAtLogin:
			err = m.ctrl.SetLaunchAtLogin(ctx, value)
		}
		return prefDoneMsg{pref: pref, value: value, err: err}
	})
}

func (m *MenuModel) settlePreference(msg prefDoneMsg) {
	delete(m.prefBusy, msg.pref)
	if msg.err == nil {
		return
	}

	m.applyPreference(msg.pref, !msg.value)
	m.log("warn", msg.err.Error())
	if msg.pref == prefAutoDisable {
		m.setMessage(MessageError, "Could not save preference")
	}
}

func (m *MenuModel) applyPreference(pref preference, value bool) {
	switch pref {
	case prefAutoDisable:
		m.state.AutoDisableBuiltin = value
	case prefLaunchAtLogin:
		m.state.LaunchAtLogin = value
	}
}

// exit turns every display back on, when configured, then quits
func (m *MenuModel) exit() tea.Cmd {
	if !m.opts.RestoreOnExit {
		return m.quit()
	}

	m.exiting = true
	m.busy++
	m.refreshStatus()
	return m.call(func(ctx context.Context) tea.Msg {
		return exitDoneMsg{err: m.ctrl.RestoreAll(ctx)}
	})
}

func (m *MenuModel) quit() tea.Cmd {
	if m.base != nil {
		if cmd := m.base.InitiateShutdown(); cmd != nil {
			return cmd
		}
	}
	return tea.Quit
}

func (m *MenuModel) showView(v menuView) {
	m.view = v
	m.cursor = 0
	m.message = Message{}
}

func (m *MenuModel) setMessage(t MessageType, content string) {
	m.message = Message{Type: t, Content: content}
}

func (m *MenuModel) log(level, message string) {
	m.activity = append(m.activity, LogEntry{Timestamp: time.Now(), Level: level, Message: message})
	if len(m.activity) > 50 {
		m.activity = m.activity[len(m.activity)-50:]
	}
}


func (m *MenuModel) refreshStatus() {
	m.status.Busy = !m.loaded || m.busy > 0 || len(m.pending) > 0
	displays := m.displays()
	m.status.Status = fmt.Sprintf("%d of %d on", display.OnCount(displays), len(displays))
}

func (m *MenuModel) clampCursor() {
	if n := len(m.items()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// displays returns the snapshot with switches that are waiting for their
// delay shown in their requested position
func (m *MenuModel) displays() []display.Display {
	displays := display.Clone(m.state.Displays)
	for i := range displays {
		if p, ok := m.pending[displays[i].ID]; ok {
			displays[i].On = p.enabled
		}
	}
	return displays
}

// switchDisabled reports whether the switch of d must not be operated: it is
// the last display that is on
func (m *MenuModel) switchDisabled(d display.Display) bool {
	return d.On && !display.CanDisable(m.displays(), d.ID)
}

func (m *MenuModel) displayName(id display.ID) string {
	if d, ok := display.Find(m.state.Displays, id); ok {
		return d.Name
	}
	return display.PlaceholderName(id)
}

func (m *MenuModel) items() []menuItem {
	if m.view == viewPreferences {
		return []menuItem{
			{kind: itemAutoDisable},
			{kind: itemLaunchAtLogin},
			{kind: itemBack},
		}
	}

	displays := m.displays()
	items := make([]menuItem, 0, len(displays)+3)
	for _, d := range displays {
		items = append(items, menuItem{kind: itemDisplay, display: d})
	}
	return append(items,
		menuItem{kind: itemAllOn},
		menuItem{kind: itemPreferences},
		menuItem{kind: itemExit},
	)
}

// View implements tea.Model
func (m *MenuModel) View() string {
	if m.exiting {
		return SubtleStyle.Render("Turning all displays on...") + "\n"
	}

	inner := m.width - 4
	m.status.Width = inner

	var b strings.Builder
	b.WriteString(m.status.View())
	b.WriteString("\n")
	b.WriteString(CreateSeparator(inner, "─"))
	b.WriteString("\n")

	if m.view == viewPreferences {
		b.WriteString(m.renderPreferences(inner))
	} else {
		b.WriteString(m.renderMain(inner))
	}

	if msg := m.message.View(); msg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(inner).Render(msg))
	}

	body := MenuStyle.Width(m.width - 2).Render(b.String())

	help := ControlsHelp{Controls: m.controls(), Width: m.width}
	out := body + "\n" + help.View()

	if logs := m.activity; len(logs) > 0 {
		start := max(len(logs)-3, 0)
		for _, entry := range logs[start:] {
			out += "\n" + FormatLogEntry(entry)
		}
	}
	return out + "\n"
}

func (m *MenuModel) renderMain(width int) string {
	var b strings.Builder
	items := m.items()

	if !m.loaded {
		b.WriteString(SubtleStyle.Render(" Reading displays..."))
		b.WriteString("\n")
	} else if len(m.state.Displays) == 0 {
		b.WriteString(SubtleStyle.Render(" No displays found"))
		b.WriteString("\n")
	}

	for i, item := range items {
		if item.kind == itemAllOn {
			b.WriteString(CreateSeparator(width, "─"))
			b.WriteString("\n")
		}
		b.WriteString(m.renderItem(item, i == m.cursor, width))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m *MenuModel) renderPreferences(width int) string {
	var b strings.Builder
	b.WriteString(SubheaderStyle.Render(IconBack + " Preferences"))
	b.WriteString("\n\n")

	for i, item := range m.items() {
		if item.kind == itemBack {
			b.WriteString("\n")
		}
		b.WriteString(m.renderItem(item, i == m.cursor, width))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m *MenuModel) renderItem(item menuItem, selected bool, width int) string {
	cursor := "  "
	if selected {
		cursor = ControlKeyStyle.Render("› ")
	}

	label, icon, sw := "", "", ""
	style := RowStyle
	switch item.kind {
	case itemDisplay:
		icon = IconExternal
		if item.display.BuiltIn {
			icon = IconBuiltin
		}
		label = item.display.Name
		sw = FormatSwitch(item.display.On, m.switchDisabled(item.display))
	case itemAllOn:
		icon, label = IconAllOn, "All Displays On"
	case itemPreferences:
		icon, label = IconPrefs, "Preferences"
	case itemExit:
		icon, label = IconExit, m.opts.ExitLabel
		style = DangerRowStyle
	case itemAutoDisable:
		label = "Auto-disable built-in display"
		sw = FormatSwitch(m.state.AutoDisableBuiltin, m.prefBusy[prefAutoDisable])
	case itemLaunchAtLogin:
		label = "Launch at login"
		sw = FormatSwitch(m.state.LaunchAtLogin, m.prefBusy[prefLaunchAtLogin])
	case itemBack:
		icon, label = IconBack, "Back"
	}
	if selected && item.kind != itemExit {
		style = SelectedRowStyle
	}

	labelWidth := width - lipgloss.Width(cursor) - lipgloss.Width(sw) - 4
	if icon != "" {
		labelWidth -= 3
	}
	labelWidth = max(labelWidth, 4)

	line := cursor
	if icon != "" {
		line += IconStyle.Render(icon)
	}
	line += style.Width(labelWidth).MaxWidth(labelWidth).Render(label)
	if sw != "" {
		line += " " + sw
	}
	return line
}

func (m *MenuModel) controls() []Control {
	if m.view == viewPreferences {
		return []Control{
			{Key: "space", Desc: "toggle"},
			{Key: "esc", Desc: "back"},
		}
	}
	return []Control{
		{Key: "space", Desc: "toggle"},
		{Key: "a", Desc: "all on"},
		{Key: "p", Desc: "preferences"},
		{Key: "q", Desc: "exit"},
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
