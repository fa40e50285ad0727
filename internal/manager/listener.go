package manager

import (
	"context"
	"fmt"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/logger"
)

// Run consumes backend change notifications until ctx is done
func (m *Manager) Run(ctx context.Context) error {
	events, err := m.backend.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch display changes: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.handleChange(ev)
		}
	}
}

func (m *Manager) handleChange(ev display.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if m.guard.absorb(ev) {
		logger.Debugf("Ignoring self-caused display change (display %d %s)", ev.Display, ev.Kind)
		return
	}

	logger.Debugf("Display configuration changed externally (display %d %s)", ev.Display, ev.Kind)
	m.refreshAndLogLocked()
}

// guardIdle runs when the last self-change window has elapsed
func (m *Manager) guardIdle(dropped int) {
	if dropped == 0 || !m.opts.ReplaySuppressed || m.closed {
		return
	}

	logger.Debugf("Replaying %d display changes suppressed by the self-change guard", dropped)
	m.scheduleLocked(&m.refreshTimer, 0, m.refreshAndLogLocked)
}
