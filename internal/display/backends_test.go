package display

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records invocations and returns canned output per command
type fakeRunner struct {
	outputs map[string]string
	err     error
	calls   []string
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	call := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.calls = append(f.calls, call)
	if f.err != nil {
		return nil, f.err
	}
	for prefix, out := range f.outputs {
		if strings.HasPrefix(call, prefix) {
			return []byte(out), nil
		}
	}
	return nil, nil
}

const hyprMonitorsJSON = `[
  {"id": 0, "name": "eDP-1", "description": "BOE 0x0BCA", "make": "BOE", "model": "0x0BCA", "disabled": true},
  {"id": 1, "name": "DP-3", "description": "Dell Inc. DELL U2720Q 1234", "make": "Dell Inc.", "model": "DELL U2720Q", "disabled": false}
]`

func TestHyprlandBackendEnumeration(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"hyprctl -j monitors all": hyprMonitorsJSON}}
	h := &hyprlandBackend{run: runner.run, outputs: newOutputTable()}

	all, err := h.AllDisplays()
	require.NoError(t, err)
	assert.Equal(t, []ID{connectorID("eDP-1"), connectorID("DP-3")}, all)

	online, err := h.OnlineDisplays()
	require.NoError(t, err)
	assert.Equal(t, []ID{connectorID("DP-3")}, online)

	assert.True(t, h.IsBuiltin(connectorID("eDP-1")))
	assert.False(t, h.IsBuiltin(connectorID("DP-3")))

	names := h.ScreenNames()
	assert.Equal(t, map[ID]string{connectorID("DP-3"): "Dell Inc. DELL U2720Q 1234"}, names)
}

func TestHyprlandBackendConfiguration(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"hyprctl -j monitors all": hyprMonitorsJSON,
		"hyprctl --batch":         "ok",
	}}
	h := &hyprlandBackend{run: runner.run, outputs: newOutputTable()}
	_, err := h.AllDisplays()
	require.NoError(t, err)

	tx, err := h.BeginConfiguration()
	require.NoError(t, err)
	require.NoError(t, tx.SetEnabled(connectorID("eDP-1"), true))
	require.NoError(t, tx.Complete())

	assert.Equal(t, "hyprctl --batch keyword monitor eDP-1,preferred,auto,1", runner.calls[len(runner.calls)-1])

	tx, err = h.BeginConfiguration()
	require.NoError(t, err)
	assert.ErrorIs(t, tx.SetEnabled(42, false), ErrUnknownDisplay)
	require.NoError(t, tx.Cancel())
	assert.Error(t, tx.Complete(), "a cancelled transaction cannot be completed")
}

func TestHyprlandBackendRejectedKeyword(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"hyprctl -j monitors all": hyprMonitorsJSON,
		"hyprctl --batch":         "invalid monitor",
	}}
	h := &hyprlandBackend{run: runner.run, outputs: newOutputTable()}
	_, err := h.AllDisplays()
	require.NoError(t, err)

	tx, err := h.BeginConfiguration()
	require.NoError(t, err)
	require.NoError(t, tx.SetEnabled(connectorID("DP-3"), false))
	assert.Error(t, tx.Complete())
}

func TestHyprlandQueryFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("connection refused")}
	h := &hyprlandBackend{run: runner.run, outputs: newOutputTable()}

	_, err := h.AllDisplays()
	assert.ErrorIs(t, err, ErrDisplayQueryFailed)
}

func TestParseHyprlandEvent(t *testing.T) {
	tests := []struct {
		line string
		want Event
		ok   bool
	}{
		{"monitoradded>>DP-3", Event{Display: connectorID("DP-3"), Kind: EventAdded}, true},
		{"monitorremoved>>eDP-1", Event{Display: connectorID("eDP-1"), Kind: EventRemoved}, true},
		{"monitoraddedv2>>1,DP-3,Dell Inc. DELL U2720Q", Event{Display: connectorID("DP-3"), Kind: EventAdded}, true},
		{"configreloaded>>", Event{Kind: EventChanged}, true},
		{"workspace>>2", Event{}, false},
		{"garbage", Event{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := parseHyprlandEvent(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWlrRandrBackend(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"wlr-randr --json": `[
			{"name": "eDP-1", "description": "Sharp Corporation 0x1453", "make": "Sharp Corporation", "model": "0x1453", "enabled": true},
			{"name": "HDMI-A-1", "description": "", "make": "LG Electronics", "model": "LG HDR 4K", "enabled": false}
		]`,
	}}
	w := &wlrRandrBackend{run: runner.run, outputs: newOutputTable()}

	online, err := w.OnlineDisplays()
	require.NoError(t, err)
	assert.Equal(t, []ID{connectorID("eDP-1")}, online)
	assert.True(t, w.IsBuiltin(connectorID("eDP-1")))
	assert.NotContains(t, w.ScreenNames(), connectorID("HDMI-A-1"))

	tx, err := w.BeginConfiguration()
	require.NoError(t, err)
	require.NoError(t, tx.SetEnabled(connectorID("HDMI-A-1"), true))
	require.NoError(t, tx.SetEnabled(connectorID("eDP-1"), false))
	require.NoError(t, tx.Complete())

	assert.Equal(t, "wlr-randr --output HDMI-A-1 --on --output eDP-1 --off", runner.calls[len(runner.calls)-1])
}

func TestOutputLabel(t *testing.T) {
	assert.Equal(t, "Dell U2720Q", outputLabel("DP-1", " Dell U2720Q ", "", ""))
	assert.Equal(t, "LG Electronics LG HDR 4K", outputLabel("DP-1", "", "LG Electronics", "LG HDR 4K"))
	assert.Equal(t, "DP-1", outputLabel("DP-1", "", "", ""))
}

func TestSimulatedBackendTransaction(t *testing.T) {
	sim := NewSimulatedBackend(DefaultSimulatedDisplays()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := sim.Watch(ctx)
	require.NoError(t, err)

	tx, err := sim.BeginConfiguration()
	require.NoError(t, err)
	require.NoError(t, tx.SetEnabled(3, true))
	require.NoError(t, tx.Complete())

	online, err := sim.OnlineDisplays()
	require.NoError(t, err)
	assert.ElementsMatch(t, []ID{1, 2, 3}, online)
	assert.Equal(t, []SimulatedRequest{{ID: 3, Enabled: true}}, sim.Requests())

	select {
	case ev := <-events:
		assert.Equal(t, Event{Display: 3, Kind: EventAdded}, ev)
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestSimulatedBackendFailures(t *testing.T) {
	sim := NewSimulatedBackend(DefaultSimulatedDisplays()...)

	sim.FailStage(StageBegin, 1000)
	_, err := sim.BeginConfiguration()
	require.Error(t, err)
	sim.FailStage(StageBegin, 0)

	sim.FailStage(StageCommit, 1004)
	tx, err := sim.BeginConfiguration()
	require.NoError(t, err)
	require.NoError(t, tx.SetEnabled(2, false))
	require.Error(t, tx.Complete())

	online, err := sim.OnlineDisplays()
	require.NoError(t, err)
	assert.Contains(t, online, ID(2), "failed commit must not change hardware state")

	sim.FailQueries(errors.New("window server unavailable"))
	_, err = sim.AllDisplays()
	assert.ErrorIs(t, err, ErrDisplayQueryFailed)
}

func TestSimulatedScreenNamesOnlyOnline(t *testing.T) {
	sim := NewSimulatedBackend(DefaultSimulatedDisplays()...)
	names := sim.ScreenNames()

	assert.Equal(t, "Built-in Retina Display", names[1])
	assert.NotContains(t, names, ID(3))

	assert.True(t, sim.SetOnline(3, true))
	assert.False(t, sim.SetOnline(3, true), "no-op change reports false")
	assert.Equal(t, "LG HDR 4K", sim.ScreenNames()[3])
}
