package manager

import (
	"context"
	"fmt"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/logger"
)

// evaluatePolicyLocked keeps the built-in display off while an external
// display is on, and on otherwise
func (m *Manager) evaluatePolicyLocked() {
	if !m.autoDisable || m.closed {
		return
	}

	displays := m.store.Snapshot().Displays
	builtin, ok := display.FindBuiltin(displays)
	if !ok {
		return
	}

	externalOn := display.AnyExternalOn(displays)
	switch {
	case externalOn && builtin.On:
		logger.Info("External display detected, turning off the built-in display")
		_ = m.applyLocked(builtin.ID, false)
	case !externalOn && !builtin.On:
		logger.Info("No external display on, turning the built-in display back on")
		_ = m.applyLocked(builtin.ID, true)
	}
}

// SetAutoDisable persists the auto-disable preference. Turning it on
// evaluates the policy once pending enumerations have settled.
func (m *Manager) SetAutoDisable(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.prefs.SetAutoDisableBuiltin(enabled); err != nil {
		return fmt.Errorf("failed to save auto-disable preference: %w", err)
	}
	m.setAutoDisableLocked(enabled)
	return nil
}

// SyncAutoDisable adopts a preference changed outside the program, such as
// an edit of the config file
func (m *Manager) SyncAutoDisable(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if enabled == m.autoDisable {
		return
	}
	logger.Infof("Auto-disable built-in display changed to %t", enabled)
	m.setAutoDisableLocked(enabled)
}

func (m *Manager) setAutoDisableLocked(enabled bool) {
	m.autoDisable = enabled
	m.publishPreferencesLocked()

	if enabled {
		m.scheduleLocked(&m.policyTimer, m.opts.PolicySettle, m.evaluatePolicyLocked)
	} else {
		m.stopLocked(&m.policyTimer)
	}
}
