package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnema/displaytoggle/internal/logger"
)

// ProgramConfig holds configuration for running a UI program
type ProgramConfig struct {
	ShutdownConfig ShutdownConfig
	AltScreen      bool
	// Output redirects rendering to a file, mostly useful for debugging
	Output string
}

// DefaultProgramConfig returns default configuration
func DefaultProgramConfig() ProgramConfig {
	return ProgramConfig{
		ShutdownConfig: DefaultShutdownConfig(),
		AltScreen:      true,
	}
}

// UIModel interface that all locally run models must implement
type UIModel interface {
	tea.Model
	// SetBase allows the model to store reference to base UI
	SetBase(base *BaseUI)
	// OnShutdown is called after the program has exited
	OnShutdown() error
}

// ProgramRunner manages the lifecycle of a Bubble Tea program with proper shutdown
type ProgramRunner struct {
	config  ProgramConfig
	base    *BaseUI
	program *tea.Program
	done    chan struct{}
}

// NewProgramRunner creates a new program runner
func NewProgramRunner(config ProgramConfig) *ProgramRunner {
	return &ProgramRunner{
		config: config,
		done:   make(chan struct{}),
	}
}

// Run starts the UI program with the given model and blocks until it exits
// or ctx is cancelled
func (r *ProgramRunner) Run(ctx context.Context, model UIModel) error {
	defer close(r.done)

	r.base = NewBaseUI(ctx)
	r.base.SetOnShutdown(func() error {
		logger.Debug("Running menu shutdown")
		if err := model.OnShutdown(); err != nil {
			logger.Errorf("Menu shutdown error: %v", err)
			return err
		}
		return nil
	})

	model.SetBase(r.base)

	var opts []tea.ProgramOption
	if r.config.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	opts = append(opts, tea.WithContext(r.base.Context()))

	if r.config.Output != "" {
		f, err := os.OpenFile(r.config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		defer f.Close()
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(model, opts...)

	errCh := make(chan error, 1)
	go func() {
		_, err := r.program.Run()
		errCh <- err
	}()

	var runErr error
	select {
	case err := <-errCh:
		runErr = err
	case <-ctx.Done():
		r.program.Quit()

		select {
		case err := <-errCh:
			runErr = err
		case <-time.After(r.config.ShutdownConfig.ForcePeriod):
			r.program.Kill()
			<-errCh
		}
	}

	// A cancelled context is a normal exit
	if errors.Is(runErr, tea.ErrProgramKilled) && (r.base.IsShuttingDown() || ctx.Err() != nil) {
		runErr = nil
	}

	if r.base.onShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), r.config.ShutdownConfig.GracePeriod)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- r.base.onShutdown()
		}()

		select {
		case <-done:
		case <-shutdownCtx.Done():
			logger.Warn("Menu shutdown timed out")
		}
	}

	return runErr
}

// Quit sends a quit message to the program
func (r *ProgramRunner) Quit() {
	if r.program != nil {
		r.program.Quit()
	}
}

// Done returns a channel that's closed when the program exits
func (r *ProgramRunner) Done() <-chan struct{} {
	return r.done
}
