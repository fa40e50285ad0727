// Package mcpserver exposes display control as MCP tools
package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/state"
)

// Service is what the tools need: the running daemon or a local manager
type Service interface {
	Snapshot(ctx context.Context) (state.State, error)
	SetDisplay(ctx context.Context, id display.ID, enabled bool) error
	RestoreAll(ctx context.Context) error
	SetAutoDisable(ctx context.Context, enabled bool) error
}

// Config holds MCP server configuration.
type Config struct {
	Transport string
	Port      int
}

// Server wraps the MCP server with the display service
type Server struct {
	svc Service
	mcp *server.MCPServer
}

// New creates an MCP server with every displaytoggle tool registered
func New(svc Service, version string) *Server {
	s := &Server{
		svc: svc,
		mcp: server.NewMCPServer("displaytoggle", version),
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server with the configured transport.
func (s *Server) Serve(cfg Config) error {
	switch cfg.Transport {
	case "stdio":
		return server.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := server.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("list_displays",
			mcp.WithDescription("List every display known to the system with its id, name, kind and whether it is on"),
		),
		s.handleListDisplays,
	)

	s.mcp.AddTool(
		mcp.NewTool("set_display",
			mcp.WithDescription("Turn a display on or off. The last display that is on cannot be turned off."),
			mcp.WithNumber("id", mcp.Description("Display id as returned by list_displays")),
			mcp.WithString("name", mcp.Description("Display name, used when id is not given (case-insensitive)")),
			mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("true to turn the display on, false to turn it off")),
		),
		s.handleSetDisplay,
	)

	s.mcp.AddTool(
		mcp.NewTool("restore_displays",
			mcp.WithDescription("Turn every display back on"),
		),
		s.handleRestoreDisplays,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_preferences",
			mcp.WithDescription("Read the auto-disable and launch at login preferences"),
		),
		s.handleGetPreferences,
	)

	s.mcp.AddTool(
		mcp.NewTool("set_auto_disable",
			mcp.WithDescription("Enable or disable turning the built-in display off while exactly one external display is on"),
			mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("New value of the preference")),
		),
		s.handleSetAutoDisable,
	)
}
