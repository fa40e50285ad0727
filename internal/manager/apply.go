package manager

import (
	"context"
	"fmt"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/logger"
)

// Apply powers one display on or off. On success only that snapshot entry
// changes and a refresh is scheduled; on failure the snapshot is left
// untouched and the ConfigurationFailed error is recorded.
func (m *Manager) Apply(ctx context.Context, id display.ID, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(id, enabled)
}

// SetDisplay is the interface entry point for a user toggle. Turning off
// the last display that is on is rejected before reaching the OS.
func (m *Manager) SetDisplay(ctx context.Context, id display.ID, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	displays := m.store.Snapshot().Displays
	d, ok := display.Find(displays, id)
	if !ok {
		return fmt.Errorf("%w: %d", display.ErrUnknownDisplay, id)
	}
	if !enabled && !display.CanDisable(displays, id) {
		return display.ErrLastDisplayOn
	}
	if d.On == enabled {
		logger.Debugf("Display %d already %s", id, onOff(enabled))
		return nil
	}

	return m.applyLocked(id, enabled)
}

func (m *Manager) applyLocked(id display.ID, enabled bool) error {
	m.guard.begin(id)

	tx, err := m.backend.BeginConfiguration()
	if err != nil {
		return m.configFailedLocked(id, enabled, display.StageBegin, err)
	}

	if err := tx.SetEnabled(id, enabled); err != nil {
		if cerr := tx.Cancel(); cerr != nil {
			logger.Debugf("Cancel display configuration: %v", cerr)
		}
		return m.configFailedLocked(id, enabled, display.StageConfigure, err)
	}

	logger.Debugf("Turn %s command for display %d sent, finalizing", onOff(enabled), id)
	if err := tx.Complete(); err != nil {
		return m.configFailedLocked(id, enabled, display.StageCommit, err)
	}

	logger.Infof("Display %d turned %s", id, onOff(enabled))
	m.lastErr = nil
	m.store.Update(id, enabled)
	m.scheduleLocked(&m.refreshTimer, m.opts.RefreshDelay, m.refreshAndLogLocked)
	return nil
}

func (m *Manager) configFailedLocked(id display.ID, enabled bool, stage display.Stage, err error) error {
	cerr := &display.ConfigError{ID: id, Enabled: enabled, Stage: stage, Err: err}
	logger.Errorf("Failed to turn %s display %d: %v", onOff(enabled), id, cerr)
	m.lastErr = cerr
	return cerr
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
