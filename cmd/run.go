package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnema/displaytoggle/internal/autostart"
	"github.com/bnema/displaytoggle/internal/config"
	"github.com/bnema/displaytoggle/internal/ipc"
	"github.com/bnema/displaytoggle/internal/logger"
	"github.com/bnema/displaytoggle/internal/manager"
	"github.com/bnema/displaytoggle/internal/remote"
	"github.com/bnema/displaytoggle/internal/ui"
)

var (
	headless   bool
	uiOutput   string
	remoteAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the display daemon and open the menu",
	Long: `Run displaytoggle in the foreground.

At startup every offline display is turned back on. The daemon then follows
display changes, applies the auto-disable policy and answers one-shot commands
over its socket. Unless --headless is given the display menu opens in the
terminal; with remote.enabled the same menu is served over SSH.`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().BoolVar(&headless, "headless", false, "Run without the terminal menu")
	runCmd.Flags().StringVar(&uiOutput, "ui-output", "", "Render the menu to this file instead of the terminal")
	runCmd.Flags().StringVar(&remoteAddr, "remote-address", "", "Serve the menu over SSH on this address")
	runCmd.Flags().String("backend", "", "Display backend: auto, darwin, hyprland, wlr-randr or simulated")
	runCmd.Flags().Bool("remote", false, "Serve the menu over SSH")

	// Bind flags to viper
	viper.BindPFlag("displays.backend", runCmd.Flags().Lookup("backend"))
	viper.BindPFlag("remote.enabled", runCmd.Flags().Lookup("remote"))

	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if remoteAddr != "" {
		cfg.Remote.Enabled = true
		cfg.Remote.Address = remoteAddr
	}

	if cfg.Logging.FileLogging {
		if err := logger.EnableFileLogging(logger.DefaultLogPath()); err != nil {
			logger.Warnf("File logging disabled: %v", err)
		}
		defer logger.CloseFileLogging()
	}

	if daemonRunning(cmd.Context()) {
		return fmt.Errorf("displaytoggle is already running")
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Debugf("Failed to close display backend: %v", err)
		}
	}()

	mgr := manager.New(backend, config.Preferences{}, autostart.New(), manager.OptionsFromConfig(cfg))

	// Edits of the config file by hand take effect without a restart
	config.Watch(func(c *config.Config) {
		mgr.SyncAutoDisable(c.Displays.AutoDisableBuiltin)
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger.Infof("Starting displaytoggle with backend %s", backend.Name())
	if err := mgr.Reconcile(ctx); err != nil {
		logger.Errorf("Initial reconciliation failed: %v", err)
	}

	listenErr := make(chan error, 1)
	go func() {
		err := mgr.Run(ctx)
		if err != nil {
			logger.Errorf("Display change listener stopped: %v", err)
		}
		listenErr <- err
	}()

	ipcServer, err := ipc.NewSocketServer(mgr)
	if err != nil {
		return fmt.Errorf("failed to create IPC server: %w", err)
	}
	if err := ipcServer.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}

	var remoteServer *remote.Server
	if cfg.Remote.Enabled {
		remoteServer = remote.NewServer(remote.Config{
			Address:            cfg.Remote.Address,
			HostKeyPath:        cfg.Remote.HostKeyPath,
			AuthorizedKeysPath: cfg.Remote.AuthorizedKeysPath,
			ToggleDelay:        cfg.Timing.ToggleDelay,
		}, mgr)
		if err := remoteServer.Start(ctx); err != nil {
			ipcServer.Stop()
			return fmt.Errorf("failed to start SSH menu: %w", err)
		}
	}

	if headless {
		err = waitForShutdown(ctx, listenErr)
	} else {
		err = runMenu(ctx, mgr, cfg)
	}
	cancel()

	if remoteServer != nil {
		remoteServer.Stop()
	}
	ipcServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if serr := mgr.Shutdown(shutdownCtx); serr != nil {
		logger.Errorf("Failed to restore displays on exit: %v", serr)
	}

	logger.Info("displaytoggle stopped")
	return err
}

// runMenu shows the display menu until the user exits it or ctx is done
func runMenu(ctx context.Context, mgr *manager.Manager, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Quiet(true)
	defer logger.Quiet(false)

	opts := ui.DefaultMenuOptions()
	opts.ToggleDelay = cfg.Timing.ToggleDelay
	opts.RestoreOnExit = cfg.Displays.RestoreOnExit

	programCfg := ui.DefaultProgramConfig()
	programCfg.Output = uiOutput

	runner := ui.NewProgramRunner(programCfg)
	if err := runner.Run(ctx, ui.NewMenuModel(mgr, opts)); err != nil {
		return fmt.Errorf("menu failed: %w", err)
	}
	return nil
}

// waitForShutdown blocks until a signal arrives, ctx is done or the change
// listener fails
func waitForShutdown(ctx context.Context, listenErr <-chan error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Infof("Received %s, shutting down", sig)
		return nil
	case <-ctx.Done():
		return nil
	case err := <-listenErr:
		if err != nil {
			return err
		}
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		return nil
	}
}

// daemonRunning reports whether another daemon answers on the socket
func daemonRunning(ctx context.Context) bool {
	client, err := ipc.NewClientWithTimeout(probeTimeout)
	if err != nil {
		return false
	}
	defer client.Close()
	return client.IsRunning(ctx)
}
