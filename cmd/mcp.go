package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnema/displaytoggle/internal/config"
	"github.com/bnema/displaytoggle/internal/logger"
	"github.com/bnema/displaytoggle/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing display control as tools",
	Long: `Start a Model Context Protocol server so that agents can list displays,
turn them on and off and change the auto-disable preference.

The tools drive the running daemon when there is one, otherwise a backend
opened for the lifetime of the server.

Transports:
  stdio            - JSON-RPC over stdin/stdout (default)
  streamable-http  - HTTP server on --port`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().String("transport", "", "Transport: stdio or streamable-http")
	mcpCmd.Flags().Int("port", 0, "Port for the streamable-http transport")

	viper.BindPFlag("mcp.transport", mcpCmd.Flags().Lookup("transport"))
	viper.BindPFlag("mcp.port", mcpCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	return withService(cmd.Context(), func(svc service) error {
		logger.Infof("MCP server using backend %s over %s", svc.BackendName(), cfg.MCP.Transport)
		srv := mcpserver.New(svc, Version)
		return srv.Serve(mcpserver.Config{
			Transport: cfg.MCP.Transport,
			Port:      cfg.MCP.Port,
		})
	})
}
