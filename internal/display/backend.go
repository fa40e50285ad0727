package display

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/bnema/displaytoggle/internal/logger"
)

// Backend is the OS adapter for one display-configuration API
type Backend interface {
	// Name identifies the backend in logs and status output
	Name() string

	// AllDisplays returns every display the OS knows about, online or not
	AllDisplays() ([]ID, error)

	// OnlineDisplays returns the subset of displays that are currently active
	OnlineDisplays() ([]ID, error)

	// IsBuiltin reports whether the display is the integrated panel
	IsBuiltin(id ID) bool

	// ScreenNames returns the active-screen metadata: identifier to human name
	ScreenNames() map[ID]string

	// BeginConfiguration opens a display-configuration transaction
	BeginConfiguration() (Transaction, error)

	// Watch delivers screen-change notifications until ctx is done
	Watch(ctx context.Context) (<-chan Event, error)

	Close() error
}

// Transaction groups display changes that are committed or cancelled together
type Transaction interface {
	// SetEnabled requests that the display be powered on or off
	SetEnabled(id ID, enabled bool) error

	// Complete commits the transaction permanently
	Complete() error

	// Cancel drops every requested change
	Cancel() error
}

// EventKind describes what a notification reported
type EventKind int

const (
	EventChanged EventKind = iota
	EventAdded
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	default:
		return "changed"
	}
}

// Event is a screen-parameter-change notification. Display is zero when the
// backend cannot tell which display changed.
type Event struct {
	Display ID
	Kind    EventKind
}

// Options configures backend construction
type Options struct {
	// PollInterval drives change detection for backends without native notifications
	PollInterval time.Duration
}

// Factory creates a backend
type Factory func(opts Options) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"hyprland":  newHyprlandBackend,
		"wlr-randr": newWlrRandrBackend,
		"simulated": func(Options) (Backend, error) { return NewSimulatedBackend(DefaultSimulatedDisplays()...), nil },
	}

	// autoOrder is the preference order for "auto"
	autoOrder = []string{"darwin", "hyprland", "wlr-randr"}
)

// RegisterBackend makes a platform backend available by name.
// See internal/display/darwin for the macOS registration.
func RegisterBackend(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Backends lists the registered backend names
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the named backend. "auto" or an empty name tries the platform
// backends in order of preference.
func New(name string, opts Options) (Backend, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	registryMu.RLock()
	defer registryMu.RUnlock()

	if name != "" && name != "auto" {
		factory, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown display backend %q", name)
		}
		return factory(opts)
	}

	for _, candidate := range autoOrder {
		factory, ok := registry[candidate]
		if !ok {
			continue
		}

		logger.Debugf("Display.New: Trying backend %s", candidate)
		backend, err := factory(opts)
		if err == nil {
			logger.Debugf("Display.New: Successfully created backend: %s", candidate)
			return backend, nil
		}
		logger.Debugf("Display.New: Backend %s failed: %v", candidate, err)
	}

	return nil, fmt.Errorf("no display backend available")
}

// commandRunner runs an external tool and returns its stdout
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()
	return cmd.Output()
}

// exitStatus extracts the exit code of a failed command, or -1
func exitStatus(err error) int32 {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return int32(exitErr.ExitCode())
	}
	return -1
}

// commandTimeout bounds every external tool invocation
const commandTimeout = 5 * time.Second
