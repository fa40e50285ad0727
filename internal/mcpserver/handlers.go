package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/output"
)

func (s *Server) handleListDisplays(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return yamlResult(output.DisplayList{Displays: st.Displays})
}

func (s *Server) handleSetDisplay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()

	enabled, ok := params["enabled"].(bool)
	if !ok {
		return mcp.NewToolResultError("enabled parameter is required"), nil
	}

	st, err := s.svc.Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	target, err := resolveDisplay(st.Displays, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.svc.SetDisplay(ctx, target.ID, enabled); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return yamlResult(output.Change{Action: onOff(enabled), ID: target.ID, Name: target.Name, Enabled: enabled})
}

func (s *Server) handleRestoreDisplays(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.svc.RestoreAll(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return yamlResult(output.Change{Action: "restore", Enabled: true})
}

func (s *Server) handleGetPreferences(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return yamlResult(output.Preferences{
		AutoDisableBuiltin: st.AutoDisableBuiltin,
		LaunchAtLogin:      st.LaunchAtLogin,
	})
}

func (s *Server) handleSetAutoDisable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()

	enabled, ok := params["enabled"].(bool)
	if !ok {
		return mcp.NewToolResultError("enabled parameter is required"), nil
	}

	if err := s.svc.SetAutoDisable(ctx, enabled); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.handleGetPreferences(ctx, request)
}

// resolveDisplay finds the display named by the id or name parameter
func resolveDisplay(displays []display.Display, params map[string]interface{}) (display.Display, error) {
	if v, ok := params["id"]; ok {
		id, err := idParam(v)
		if err != nil {
			return display.Display{}, err
		}
		d, found := display.Find(displays, id)
		if !found {
			return display.Display{}, fmt.Errorf("%w: %d", display.ErrUnknownDisplay, id)
		}
		return d, nil
	}

	name := stringParam(params, "name", "")
	if name == "" {
		return display.Display{}, fmt.Errorf("id or name parameter is required")
	}
	if d, ok := display.FindByName(displays, name); ok {
		return d, nil
	}
	return display.Display{}, fmt.Errorf("%w: %q", display.ErrUnknownDisplay, name)
}

func idParam(v interface{}) (display.ID, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != float64(uint32(n)) {
			return 0, fmt.Errorf("invalid display id %v", n)
		}
		return display.ID(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("invalid display id %d", n)
		}
		return display.ID(n), nil
	case string:
		return display.ParseID(n)
	}
	return 0, fmt.Errorf("invalid display id %v", v)
}

func stringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return defaultVal
}

func yamlResult(v interface{}) (*mcp.CallToolResult, error) {
	text, err := output.YAML(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
