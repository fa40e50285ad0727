package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/manager"
	"github.com/bnema/displaytoggle/internal/output"
)

type memoryPrefs struct {
	enabled bool
}

func (p *memoryPrefs) AutoDisableBuiltin() bool { return p.enabled }

func (p *memoryPrefs) SetAutoDisableBuiltin(enabled bool) error {
	p.enabled = enabled
	return nil
}

func newTestServer(t *testing.T) (*Server, *display.SimulatedBackend) {
	t.Helper()

	sim := display.NewSimulatedBackend(display.DefaultSimulatedDisplays()...)
	m := manager.New(sim, &memoryPrefs{}, nil, manager.Options{
		PolicySettle:  time.Hour,
		RestoreRepeat: time.Hour,
		RefreshDelay:  time.Hour,
	})
	require.NoError(t, m.Refresh(context.Background()))
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	sim.ResetRequests()

	return New(m, "test"), sim
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text, res.IsError
}

func TestListDisplays(t *testing.T) {
	s, _ := newTestServer(t)

	text, isErr := callTool(t, s.handleListDisplays, nil)
	require.False(t, isErr, text)

	var list output.DisplayList
	require.NoError(t, yaml.Unmarshal([]byte(text), &list))
	require.Len(t, list.Displays, 3)
	assert.Equal(t, "Built-in Retina Display", list.Displays[0].Name)
	assert.True(t, list.Displays[0].BuiltIn)
	assert.False(t, list.Displays[2].On)
}

func TestSetDisplay(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr bool
		want    []display.SimulatedRequest
	}{
		{
			name: "by id",
			args: map[string]interface{}{"id": float64(2), "enabled": false},
			want: []display.SimulatedRequest{{ID: 2, Enabled: false}},
		},
		{
			name: "by name",
			args: map[string]interface{}{"name": "dell u2720q", "enabled": false},
			want: []display.SimulatedRequest{{ID: 2, Enabled: false}},
		},
		{
			name:    "unknown id",
			args:    map[string]interface{}{"id": float64(9), "enabled": true},
			wantErr: true,
		},
		{
			name: "already on",
			args: map[string]interface{}{"id": float64(1), "enabled": true},
		},
		{
			name:    "name of offline display",
			args:    map[string]interface{}{"name": "LG HDR 4K", "enabled": true},
			wantErr: true,
		},
		{
			name:    "missing enabled",
			args:    map[string]interface{}{"id": float64(2)},
			wantErr: true,
		},
		{
			name:    "missing target",
			args:    map[string]interface{}{"enabled": true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sim := newTestServer(t)

			text, isErr := callTool(t, s.handleSetDisplay, tt.args)
			assert.Equal(t, tt.wantErr, isErr, text)
			assert.ElementsMatch(t, tt.want, sim.Requests())
		})
	}
}

func TestSetDisplayByNameUsesSnapshotName(t *testing.T) {
	s, sim := newTestServer(t)

	// Display 3 is offline so its snapshot name is a placeholder
	text, isErr := callTool(t, s.handleSetDisplay, map[string]interface{}{"name": display.PlaceholderName(3), "enabled": true})
	require.False(t, isErr, text)
	assert.Equal(t, []display.SimulatedRequest{{ID: 3, Enabled: true}}, sim.Requests())

	var change output.Change
	require.NoError(t, yaml.Unmarshal([]byte(text), &change))
	assert.Equal(t, "on", change.Action)
	assert.Equal(t, display.ID(3), change.ID)
}

func TestSetDisplayRejectsLastDisplay(t *testing.T) {
	s, sim := newTestServer(t)

	_, isErr := callTool(t, s.handleSetDisplay, map[string]interface{}{"id": float64(2), "enabled": false})
	require.False(t, isErr)
	sim.ResetRequests()

	text, isErr := callTool(t, s.handleSetDisplay, map[string]interface{}{"id": float64(1), "enabled": false})
	assert.True(t, isErr)
	assert.Contains(t, text, display.ErrLastDisplayOn.Error())
	assert.Empty(t, sim.Requests())
}

func TestRestoreDisplays(t *testing.T) {
	s, sim := newTestServer(t)

	text, isErr := callTool(t, s.handleRestoreDisplays, nil)
	require.False(t, isErr, text)

	online, err := sim.OnlineDisplays()
	require.NoError(t, err)
	assert.Len(t, online, 3)
}

func TestPreferencesTools(t *testing.T) {
	s, _ := newTestServer(t)

	text, isErr := callTool(t, s.handleSetAutoDisable, map[string]interface{}{"enabled": true})
	require.False(t, isErr, text)

	text, isErr = callTool(t, s.handleGetPreferences, nil)
	require.False(t, isErr, text)

	var prefs output.Preferences
	require.NoError(t, yaml.Unmarshal([]byte(text), &prefs))
	assert.True(t, prefs.AutoDisableBuiltin)
	assert.False(t, prefs.LaunchAtLogin)

	_, isErr = callTool(t, s.handleSetAutoDisable, map[string]interface{}{"enabled": "yes"})
	assert.True(t, isErr)
}

func TestIDParam(t *testing.T) {
	id, err := idParam(float64(42))
	require.NoError(t, err)
	assert.Equal(t, display.ID(42), id)

	id, err = idParam("7")
	require.NoError(t, err)
	assert.Equal(t, display.ID(7), id)

	_, err = idParam(float64(-1))
	assert.Error(t, err)
	_, err = idParam(1.5)
	assert.Error(t, err)
	_, err = idParam(true)
	assert.Error(t, err)
}

func TestServeUnknownTransport(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Error(t, s.Serve(Config{Transport: "carrier-pigeon"}))
}
