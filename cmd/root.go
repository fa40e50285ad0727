package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/displaytoggle/internal/config"
	"github.com/bnema/displaytoggle/internal/logger"
	"github.com/bnema/displaytoggle/internal/output"
)

var (
	configPath   string
	formatFlag   string
	logLevelFlag string

	rootCmd = &cobra.Command{
		Use:   "displaytoggle",
		Short: "displaytoggle - turn individual displays on and off",
		Long: `displaytoggle turns individual displays on and off without unplugging them.

It keeps every display on at startup, can turn the built-in panel off while an
external monitor is connected, and exposes the same controls through a terminal
menu, an SSH menu, one-shot commands and MCP tools.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/displaytoggle/displaytoggle.toml)")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text, yaml or json")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn or error")
}

// setup loads the configuration and applies the global flags before any command runs
func setup(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	output.OutputFormat = format

	if configPath != "" {
		config.SetConfigPath(configPath)
	}
	if err := config.Init(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch {
	case logLevelFlag != "":
		logger.SetLevel(logLevelFlag)
	case config.Get().Logging.LogLevel != "":
		logger.SetLevel(config.Get().Logging.LogLevel)
	}

	return nil
}

