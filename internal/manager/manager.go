// Package manager keeps the display snapshot in line with the OS: it
// reconciles offline displays, applies configuration changes, runs the
// auto-disable policy and reacts to external display changes.
package manager

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/bnema/displaytoggle/internal/config"
	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/logger"
	"github.com/bnema/displaytoggle/internal/state"
)

// ErrLoginItemUnsupported is returned when no login item mechanism exists
// for the current platform
var ErrLoginItemUnsupported = errors.New("launch at login is not supported on this platform")

// Preferences persists the auto-disable flag
type Preferences interface {
	AutoDisableBuiltin() bool
	SetAutoDisableBuiltin(enabled bool) error
}

// LoginItem registers the program to start with the user session
type LoginItem interface {
	IsInstalled() (bool, error)
	Install(execPath string) error
	Uninstall() error
}

// AfterFunc runs f after d and returns a function that cancels it
type AfterFunc func(d time.Duration, f func()) (cancel func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Options tunes the delays around display changes
type Options struct {
	PolicySettle     time.Duration
	RestoreRepeat    time.Duration
	RefreshDelay     time.Duration
	GuardWindow      time.Duration
	ReplaySuppressed bool
	RestoreOnExit    bool

	// ExecPath is registered as the login item, defaults to os.Executable
	ExecPath string

	// AfterFunc defaults to time.AfterFunc
	AfterFunc AfterFunc
}

// OptionsFromConfig maps the configuration onto manager options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PolicySettle:     cfg.Timing.PolicySettle,
		RestoreRepeat:    cfg.Timing.RestoreRepeat,
		RefreshDelay:     cfg.Timing.RefreshDelay,
		GuardWindow:      cfg.Guard.Window,
		ReplaySuppressed: cfg.Guard.ReplaySuppressed,
		RestoreOnExit:    cfg.Displays.RestoreOnExit,
	}
}

// timer is a cancellable scheduled callback. A superseded callback that
// already started sees a newer generation and does nothing.
type timer struct {
	gen    uint64
	cancel func() bool
}

// Manager owns the display snapshot. Every mutation happens with mu held.
type Manager struct {
	mu sync.Mutex

	backend display.Backend
	prefs   Preferences
	login   LoginItem
	opts    Options
	after   AfterFunc

	store *state.Store
	guard *guard

	autoDisable   bool
	launchAtLogin bool
	lastErr       error
	closed        bool

	refreshTimer timer
	policyTimer  timer
	restoreTimer timer
}

// New creates a manager. login may be nil when the platform has no login
// item support.
func New(backend display.Backend, prefs Preferences, login LoginItem, opts Options) *Manager {
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	if opts.GuardWindow <= 0 {
		opts.GuardWindow = time.Second
	}
	if opts.ExecPath == "" {
		if exe, err := os.Executable(); err == nil {
			opts.ExecPath = exe
		}
	}

	m := &Manager{
		backend:     backend,
		prefs:       prefs,
		login:       login,
		opts:        opts,
		after:       opts.AfterFunc,
		store:       state.NewStore(),
		autoDisable: prefs.AutoDisableBuiltin(),
	}
	m.guard = newGuard(&m.mu, opts.GuardWindow, opts.AfterFunc, m.guardIdle)

	if login != nil {
		installed, err := login.IsInstalled()
		if err != nil {
			logger.Warnf("Failed to read login item state: %v", err)
		}
		m.launchAtLogin = installed
	}
	m.store.SetPreferences(m.autoDisable, m.launchAtLogin)

	return m
}

// BackendName returns the name of the display backend in use
func (m *Manager) BackendName() string {
	return m.backend.Name()
}

// State returns the current snapshot and preferences
func (m *Manager) State() state.State {
	return m.store.Snapshot()
}

// Snapshot returns the current snapshot and preferences
func (m *Manager) Snapshot(ctx context.Context) (state.State, error) {
	return m.store.Snapshot(), nil
}

// Subscribe calls fn after every state change until the returned function
// is called
func (m *Manager) Subscribe(fn func(state.State)) func() {
	return m.store.Subscribe(fn)
}

// LastError returns the last enumeration or configuration failure, or nil
// once a later change succeeded
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Shutdown stops scheduled work and, when configured, turns every display
// back on
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.stopLocked(&m.refreshTimer)
	m.stopLocked(&m.policyTimer)
	m.stopLocked(&m.restoreTimer)
	m.closed = true

	if !m.opts.RestoreOnExit {
		return nil
	}

	logger.Info("Restoring all displays before exit")
	return m.reconcileLocked(ctx)
}

// scheduleLocked (re)arms t to run fn with mu held after d
func (m *Manager) scheduleLocked(t *timer, d time.Duration, fn func()) {
	if t.cancel != nil {
		t.cancel()
	}
	t.gen++
	gen := t.gen

	t.cancel = m.after(d, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.closed || t.gen != gen {
			return
		}
		t.cancel = nil
		fn()
	})
}

func (m *Manager) stopLocked(t *timer) {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
}

func (m *Manager) publishPreferencesLocked() {
	m.store.SetPreferences(m.autoDisable, m.launchAtLogin)
}
