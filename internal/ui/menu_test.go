package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/manager"
)

type memoryPrefs struct {
	enabled bool
}

func (p *memoryPrefs) AutoDisableBuiltin() bool { return p.enabled }

func (p *memoryPrefs) SetAutoDisableBuiltin(enabled bool) error {
	p.enabled = enabled
	return nil
}

func newTestMenu(t *testing.T, opts MenuOptions) (*MenuModel, *display.SimulatedBackend, *memoryPrefs) {
	t.Helper()

	sim := display.NewSimulatedBackend(display.DefaultSimulatedDisplays()...)
	prefs := &memoryPrefs{}
	m := manager.New(sim, prefs, nil, manager.Options{
		PolicySettle:  time.Hour,
		RestoreRepeat: time.Hour,
		RefreshDelay:  time.Hour,
		GuardWindow:   time.Second,
	})
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	sim.ResetRequests()

	if opts.ToggleDelay == 0 {
		opts.ToggleDelay = time.Millisecond
	}
	menu := NewMenuModel(m, opts)
	menu.Init()
	t.Cleanup(menu.Close)

	menu.Update(menu.load()())
	return menu, sim, prefs
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and returns the command it produced
func press(m *MenuModel, s string) tea.Cmd {
	_, cmd := m.Update(key(s))
	return cmd
}

// run executes cmd and feeds its message back into the model
func run(m *MenuModel, cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	_, next := m.Update(cmd())
	return next
}

func TestMenuRendersDisplays(t *testing.T) {
	menu, _, _ := newTestMenu(t, MenuOptions{})

	view := menu.View()
	for _, want := range []string{
		"Built-in Retina Display",
		"DELL U2720Q",
		display.PlaceholderName(3),
		"All Displays On",
		"Preferences",
		"Exit Application",
		"2 of 3 on",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("View should contain %q", want)
		}
	}
}

func TestMenuLastDisplaySwitchDisabled(t *testing.T) {
	menu, sim, _ := newTestMenu(t, MenuOptions{})

	// Turn the external display off so only the built-in one is left
	sim.SetOnline(2, false)
	mgr := menu.ctrl.(*manager.Manager)
	if err := mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	menu.setState(mgr.State())

	builtin, _ := display.Find(menu.displays(), 1)
	if !menu.switchDisabled(builtin) {
		t.Fatal("The switch of the last display on should be disabled")
	}

	if cmd := press(menu, " "); cmd != nil {
		t.Error("Toggling a disabled switch should not schedule anything")
	}
	if menu.message.Type != MessageWarning {
		t.Errorf("Expected a warning, got %+v", menu.message)
	}
	if len(sim.Requests()) != 0 {
		t.Errorf("No request should reach the backend, got %v", sim.Requests())
	}
}

func TestMenuToggleAppliesAfterDelay(t *testing.T) {
	menu, sim, _ := newTestMenu(t, MenuOptions{})

	press(menu, "down")
	tick := press(menu, " ")
	if tick == nil {
		t.Fatal("Toggling should schedule the change")
	}

	// The switch moves right away, the backend is untouched until the delay
	if d, _ := display.Find(menu.displays(), 2); d.On {
		t.Error("Pending switch should show its requested position")
	}
	if len(sim.Requests()) != 0 {
		t.Fatal("Change must wait for the toggle delay")
	}

	start := time.Now()
	apply := run(menu, tick)
	if time.Since(start) < time.Millisecond {
		t.Error("Change was applied before the toggle delay")
	}
	run(menu, apply)

	want := []display.SimulatedRequest{{ID: 2, Enabled: false}}
	if got := sim.Requests(); len(got) != 1 || got[0] != want[0] {
		t.Errorf("Expected requests %v, got %v", want, got)
	}
	if len(menu.pending) != 0 {
		t.Error("Pending toggle should be settled")
	}
	if d, _ := display.Find(menu.state.Displays, 2); d.On {
		t.Error("Display 2 should be off after the toggle")
	}
}

func TestMenuFollowsStateNotifications(t *testing.T) {
	menu, sim, _ := newTestMenu(t, MenuOptions{})

	sim.SetOnline(3, true)
	if err := menu.ctrl.(*manager.Manager).Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	msg := menu.waitForState()()
	if _, ok := msg.(stateMsg); !ok {
		t.Fatalf("Expected a state message, got %T", msg)
	}
	_, next := menu.Update(msg)
	if next == nil {
		t.Error("The state listener should be re-armed")
	}

	if !strings.Contains(menu.View(), "3 of 3 on") {
		t.Error("View should reflect the new snapshot")
	}
}

func TestMenuAllDisplaysOn(t *testing.T) {
	menu, sim, _ := newTestMenu(t, MenuOptions{})

	run(menu, press(menu, "a"))

	online, _ := sim.OnlineDisplays()
	if len(online) != 3 {
		t.Errorf("Every display should be on, got %v", online)
	}
	if menu.message.Type != MessageSuccess {
		t.Errorf("Expected a success message, got %+v", menu.message)
	}
}

func TestMenuPreferences(t *testing.T) {
	t.Run("auto-disable persists", func(t *testing.T) {
		menu, _, prefs := newTestMenu(t, MenuOptions{})

		press(menu, "p")
		if !strings.Contains(menu.View(), "Auto-disable built-in display") {
			t.Fatal("Preferences view should be shown")
		}

		run(menu, press(menu, " "))
		if !prefs.enabled {
			t.Error("Auto-disable should be persisted")
		}
		if !menu.state.AutoDisableBuiltin {
			t.Error("Auto-disable switch should be on")
		}
	})

	t.Run("failed launch at login reverts silently", func(t *testing.T) {
		menu, _, _ := newTestMenu(t, MenuOptions{})

		press(menu, "p")
		press(menu, "down")
		cmd := press(menu, " ")
		if !menu.state.LaunchAtLogin {
			t.Error("Switch should move before the registration completes")
		}

		run(menu, cmd)
		if menu.state.LaunchAtLogin {
			t.Error("Switch should revert when registration fails")
		}
		if menu.message.Content != "" {
			t.Errorf("No message should be shown, got %q", menu.message.Content)
		}
	})

	t.Run("escape goes back", func(t *testing.T) {
		menu, _, _ := newTestMenu(t, MenuOptions{})

		press(menu, "p")
		press(menu, "esc")
		if menu.view != viewMain {
			t.Error("Escape should return to the main view")
		}
	})
}

func TestMenuExit(t *testing.T) {
	t.Run("restores before quitting", func(t *testing.T) {
		menu, sim, _ := newTestMenu(t, MenuOptions{RestoreOnExit: true})

		quit := run(menu, press(menu, "q"))
		if quit == nil {
			t.Fatal("Exit should quit once displays are restored")
		}
		if _, ok := quit().(tea.QuitMsg); !ok {
			t.Error("Expected a quit message")
		}

		online, _ := sim.OnlineDisplays()
		if len(online) != 3 {
			t.Errorf("Every display should be on before exit, got %v", online)
		}
	})

	t.Run("quits directly without restore", func(t *testing.T) {
		menu, sim, _ := newTestMenu(t, MenuOptions{ExitLabel: "Disconnect"})

		if !strings.Contains(menu.View(), "Disconnect") {
			t.Error("Exit label should be configurable")
		}

		cmd := press(menu, "q")
		if cmd == nil {
			t.Fatal("Expected a quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("Expected a quit message")
		}
		if len(sim.Requests()) != 0 {
			t.Error("Nothing should be restored")
		}
	})
}
