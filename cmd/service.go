package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/displaytoggle/internal/autostart"
	"github.com/bnema/displaytoggle/internal/config"
	"github.com/bnema/displaytoggle/internal/display"
	_ "github.com/bnema/displaytoggle/internal/display/darwin"
	"github.com/bnema/displaytoggle/internal/ipc"
	"github.com/bnema/displaytoggle/internal/logger"
	"github.com/bnema/displaytoggle/internal/manager"
	"github.com/bnema/displaytoggle/internal/state"
)

// probeTimeout bounds the daemon liveness check of one-shot commands
const probeTimeout = time.Second

// service is what one-shot commands drive: the running daemon over IPC, or a
// manager created for the duration of the command when no daemon answers
type service interface {
	Snapshot(ctx context.Context) (state.State, error)
	SetDisplay(ctx context.Context, id display.ID, enabled bool) error
	RestoreAll(ctx context.Context) error
	SetAutoDisable(ctx context.Context, enabled bool) error
	SetLaunchAtLogin(ctx context.Context, enabled bool) error
	BackendName() string
	Close() error
}

// daemonService forwards every call to the running daemon
type daemonService struct {
	*ipc.Client
	backend string
}

func (d *daemonService) BackendName() string {
	return d.backend
}

// localService owns a manager and its backend for one command
type localService struct {
	*manager.Manager
	backend       display.Backend
	restoreRepeat time.Duration
}

// RestoreAll runs both restore passes before returning, scheduled work does
// not outlive the command
func (l *localService) RestoreAll(ctx context.Context) error {
	if err := l.Reconcile(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(l.restoreRepeat):
	}

	logger.Debug("Running second restore pass")
	return l.Reconcile(ctx)
}

func (l *localService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := l.Shutdown(ctx)
	return errors.Join(err, l.backend.Close())
}

// openService connects to the daemon, falling back to a local manager
func openService(ctx context.Context) (service, error) {
	client, err := ipc.NewClientWithTimeout(probeTimeout)
	if err == nil {
		status, err := client.Status(ctx)
		if err == nil {
			logger.Debugf("Using running daemon (backend %s)", status.Backend)
			return &daemonService{Client: client, backend: status.Backend}, nil
		}
		client.Close()
		if !errors.Is(err, ipc.ErrNotRunning) {
			logger.Debugf("Daemon status failed, falling back to a local backend: %v", err)
		}
	}

	return openLocalService(ctx)
}

// openLocalService creates a manager over the configured backend. It only
// refreshes the snapshot: offline displays are left alone.
func openLocalService(ctx context.Context) (*localService, error) {
	cfg := config.Get()

	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	opts := manager.OptionsFromConfig(cfg)
	opts.RestoreOnExit = false

	mgr := manager.New(backend, config.Preferences{}, autostart.New(), opts)
	if err := mgr.Refresh(ctx); err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to query displays: %w", err)
	}

	return &localService{Manager: mgr, backend: backend, restoreRepeat: opts.RestoreRepeat}, nil
}

// newBackend creates the display backend named in the configuration
func newBackend(cfg *config.Config) (display.Backend, error) {
	backend, err := display.New(cfg.Displays.Backend, display.Options{
		PollInterval: cfg.Displays.PollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create display backend: %w", err)
	}
	logger.Debugf("Using display backend: %s", backend.Name())
	return backend, nil
}

// withService runs fn against the daemon or a local manager
func withService(ctx context.Context, fn func(svc service) error) error {
	svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Debugf("Failed to close service: %v", err)
		}
	}()

	return fn(svc)
}
