package manager

import (
	"context"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/logger"
)

// Reconcile turns every offline display back on, once each, then
// republishes the snapshot and evaluates the auto-disable policy
func (m *Manager) Reconcile(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconcileLocked(ctx)
}

// Refresh re-queries the displays, republishes the snapshot and evaluates
// the auto-disable policy without restoring anything
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked()
}

// RestoreAll is the "All Displays On" action: a reconciliation pass now and
// a second one shortly after for displays that came back late
func (m *Manager) RestoreAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.reconcileLocked(ctx)
	m.scheduleLocked(&m.restoreTimer, m.opts.RestoreRepeat, func() {
		if err := m.reconcileLocked(context.Background()); err != nil {
			logger.Warnf("Second restore pass failed: %v", err)
		}
	})
	return err
}

func (m *Manager) reconcileLocked(ctx context.Context) error {
	all, err := m.backend.AllDisplays()
	if err != nil {
		return m.queryFailedLocked(err)
	}
	online, err := m.backend.OnlineDisplays()
	if err != nil {
		return m.queryFailedLocked(err)
	}

	onlineSet := make(map[display.ID]bool, len(online))
	for _, id := range online {
		onlineSet[id] = true
	}

	for _, id := range all {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if onlineSet[id] {
			continue
		}
		logger.Infof("Found offline display, attempting to restore: %d", id)
		// failures are recorded by the applier; keep restoring the rest
		_ = m.applyLocked(id, true)
	}

	return m.refreshLocked()
}

func (m *Manager) refreshLocked() error {
	all, err := m.backend.AllDisplays()
	if err != nil {
		return m.queryFailedLocked(err)
	}
	online, err := m.backend.OnlineDisplays()
	if err != nil {
		return m.queryFailedLocked(err)
	}

	displays := buildSnapshot(all, online, m.backend.ScreenNames(), m.backend.IsBuiltin)
	logger.Debugf("Publishing %d displays (%d on)", len(displays), display.OnCount(displays))
	m.store.Publish(displays)

	m.evaluatePolicyLocked()
	return nil
}

func (m *Manager) refreshAndLogLocked() {
	if err := m.refreshLocked(); err != nil {
		logger.Warnf("Display refresh failed: %v", err)
	}
}

func (m *Manager) queryFailedLocked(err error) error {
	logger.Errorf("Failed to load displays: %v", err)
	m.lastErr = err
	return err
}

// buildSnapshot joins the identifiers with the active-screen names. Displays
// missing from names get a placeholder.
func buildSnapshot(all, online []display.ID, names map[display.ID]string, isBuiltin func(display.ID) bool) []display.Display {
	onlineSet := make(map[display.ID]bool, len(online))
	for _, id := range online {
		onlineSet[id] = true
	}

	displays := make([]display.Display, 0, len(all))
	for _, id := range all {
		name, ok := names[id]
		if !ok || name == "" {
			name = display.PlaceholderName(id)
		}
		displays = append(displays, display.Display{
			ID:      id,
			Name:    name,
			On:      onlineSet[id],
			BuiltIn: isBuiltin(id),
		})
	}
	return displays
}
