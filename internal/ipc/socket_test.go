package ipc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/manager"
)

type memoryPrefs struct {
	enabled bool
}

func (p *memoryPrefs) AutoDisableBuiltin() bool { return p.enabled }

func (p *memoryPrefs) SetAutoDisableBuiltin(enabled bool) error {
	p.enabled = enabled
	return nil
}

func newTestServer(t *testing.T) (*SocketServer, *Client, *display.SimulatedBackend) {
	t.Helper()

	sim := display.NewSimulatedBackend(display.DefaultSimulatedDisplays()...)
	m := manager.New(sim, &memoryPrefs{}, nil, manager.Options{RefreshDelay: time.Hour, GuardWindow: time.Second})
	require.NoError(t, m.Refresh(context.Background()))
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	// Keep the path short, unix socket paths are limited in length
	dir, err := os.MkdirTemp("", "dt")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	server := NewSocketServerAt(filepath.Join(dir, "test.sock"), m)
	require.NoError(t, server.Start())
	t.Cleanup(server.Stop)

	return server, NewClientAt(server.SocketPath()), sim
}

func TestSocketServerStartStop(t *testing.T) {
	server := NewSocketServerAt(filepath.Join(t.TempDir(), "test.sock"), nil)

	require.NoError(t, server.Start())
	_, err := os.Stat(server.SocketPath())
	assert.NoError(t, err, "socket file was not created")

	// Starting again should not error
	require.NoError(t, server.Start())

	server.Stop()
	_, err = os.Stat(server.SocketPath())
	assert.True(t, os.IsNotExist(err), "socket file was not cleaned up")

	// Stopping again should not panic
	server.Stop()
}

func TestSocketServerCleanupExistingSocket(t *testing.T) {
	server := NewSocketServerAt(filepath.Join(t.TempDir(), "test.sock"), nil)

	file, err := os.Create(server.SocketPath())
	require.NoError(t, err)
	file.Close()

	require.NoError(t, server.Start())
	server.Stop()
}

func TestGetSocketPath(t *testing.T) {
	path, err := GetSocketPath()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(path))
	assert.True(t, strings.HasPrefix(path, "/tmp/displaytoggle-"), "got %s", path)
	assert.True(t, strings.HasSuffix(path, ".sock"))
}

func TestClientRoundTrip(t *testing.T) {
	_, client, sim := newTestServer(t)
	ctx := context.Background()

	s, err := client.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, s.Displays, 3)

	require.NoError(t, client.SetDisplay(ctx, 2, false))
	assert.Equal(t, []display.SimulatedRequest{{ID: 2, Enabled: false}}, sim.Requests())

	s, err = client.Snapshot(ctx)
	require.NoError(t, err)
	d, ok := display.Find(s.Displays, 2)
	require.True(t, ok)
	assert.False(t, d.On)

	// Only the built-in display is on now
	err = client.SetDisplay(ctx, 1, false)
	assert.ErrorIs(t, err, display.ErrLastDisplayOn)

	require.NoError(t, client.RestoreAll(ctx))
	s, err = client.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, display.OnCount(s.Displays))
}

func TestClientPreferencesAndStatus(t *testing.T) {
	_, client, _ := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, client.SetAutoDisable(ctx, true))

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "simulated", status.Backend)
	assert.True(t, status.State.AutoDisableBuiltin)

	err = client.SetLaunchAtLogin(ctx, true)
	assert.ErrorIs(t, err, manager.ErrLoginItemUnsupported)
}

func TestClientNotRunning(t *testing.T) {
	client := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))

	_, err := client.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.False(t, client.IsRunning(context.Background()))
}

func TestSocketServerStopWithOpenConnection(t *testing.T) {
	server, client, _ := newTestServer(t)

	_, err := client.Snapshot(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		server.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Error("Stop() took too long")
	}
}
