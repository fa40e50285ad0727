package manager

import (
	"context"
	"fmt"

	"github.com/bnema/displaytoggle/internal/logger"
)

// SetLaunchAtLogin registers or removes the login item. A failure leaves
// the published flag at its previous value.
func (m *Manager) SetLaunchAtLogin(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.login == nil {
		return ErrLoginItemUnsupported
	}

	var err error
	if enabled {
		err = m.login.Install(m.opts.ExecPath)
	} else {
		err = m.login.Uninstall()
	}
	if err != nil {
		logger.Warnf("Failed to update launch at login: %v", err)
		m.publishPreferencesLocked()
		return fmt.Errorf("failed to update launch at login: %w", err)
	}

	m.launchAtLogin = enabled
	m.publishPreferencesLocked()
	return nil
}
