package ui

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ShutdownConfig holds configuration for graceful shutdown
type ShutdownConfig struct {
	GracePeriod time.Duration // Time to wait for the shutdown callback
	ForcePeriod time.Duration // Time to wait before killing the program
}

// DefaultShutdownConfig returns sensible defaults
func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{
		GracePeriod: 5 * time.Second,
		ForcePeriod: 2 * time.Second,
	}
}

// BaseUI is the lifecycle a ProgramRunner hands to a locally run model
type BaseUI struct {
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	shuttingDown atomic.Bool

	onShutdown func() error
}

// NewBaseUI creates a base UI whose context ends on shutdown
func NewBaseUI(ctx context.Context) *BaseUI {
	ctx, cancel := context.WithCancel(ctx)
	return &BaseUI{ctx: ctx, cancel: cancel}
}

// InitiateShutdown cancels the UI context and quits the program, once
func (b *BaseUI) InitiateShutdown() tea.Cmd {
	var cmd tea.Cmd
	b.shutdownOnce.Do(func() {
		b.shuttingDown.Store(true)
		b.cancel()
		cmd = tea.Quit
	})
	return cmd
}

// IsShuttingDown returns true if shutdown has been initiated
func (b *BaseUI) IsShuttingDown() bool {
	return b.shuttingDown.Load()
}

// Context returns the UI's context
func (b *BaseUI) Context() context.Context {
	return b.ctx
}

// SetOnShutdown sets the callback run after the program exits
func (b *BaseUI) SetOnShutdown(fn func() error) {
	b.onShutdown = fn
}

// LogEntry is one line of the menu activity log
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// FormatLogEntry renders an activity line: time, level, message
func FormatLogEntry(entry LogEntry) string {
	level := strings.ToLower(entry.Level)
	style := TextStyle
	switch level {
	case "error":
		style = ErrorStyle
	case "warn", "warning":
		style = WarningStyle
		level = "warn"
	case "info":
		style = SuccessStyle
	case "debug":
		style = SubtleStyle
	}

	label := style.Bold(true).Render(strings.ToUpper(padLevel(level)))
	return MutedStyle.Render(entry.Timestamp.Format("15:04:05")) + " " + label + " " + entry.Message
}

func padLevel(level string) string {
	if len(level) >= 5 {
		return level
	}
	return level + strings.Repeat(" ", 5-len(level))
}
