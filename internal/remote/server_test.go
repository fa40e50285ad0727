package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

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

func newSigner(t *testing.T) gossh.Signer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := gossh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer
}

func startServer(t *testing.T, authorized ...gossh.PublicKey) *Server {
	t.Helper()

	dir := t.TempDir()
	keysPath := filepath.Join(dir, "authorized_keys")

	var data []byte
	for _, key := range authorized {
		data = append(data, gossh.MarshalAuthorizedKey(key)...)
	}
	require.NoError(t, os.WriteFile(keysPath, data, 0600))

	sim := display.NewSimulatedBackend(display.DefaultSimulatedDisplays()...)
	m := manager.New(sim, &memoryPrefs{}, nil, manager.Options{RefreshDelay: time.Hour})
	require.NoError(t, m.Refresh(context.Background()))
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := NewServer(Config{
		Address:            "127.0.0.1:0",
		HostKeyPath:        filepath.Join(dir, "keys", "host_key"),
		AuthorizedKeysPath: keysPath,
	}, m)
	require.NoError(t, server.Start(ctx))
	t.Cleanup(server.Stop)

	return server
}

func dial(server *Server, signer gossh.Signer) (*gossh.Client, error) {
	return gossh.Dial("tcp", server.Addr().String(), &gossh.ClientConfig{
		User:            "tester",
		Auth:            []gossh.AuthMethod{gossh.PublicKeys(signer)},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
}

func TestServerAcceptsAuthorizedKey(t *testing.T) {
	signer := newSigner(t)
	server := startServer(t, signer.PublicKey())

	client, err := dial(server, signer)
	require.NoError(t, err)
	defer client.Close()

	_, err = os.Stat(server.cfg.HostKeyPath)
	assert.NoError(t, err, "host key should be generated on first start")
}

func TestServerRejectsUnknownKey(t *testing.T) {
	server := startServer(t, newSigner(t).PublicKey())

	_, err := dial(server, newSigner(t))
	assert.Error(t, err)
}

func TestServerStopIsIdempotent(t *testing.T) {
	server := startServer(t)

	server.Stop()
	server.Stop()

	_, err := dial(server, newSigner(t))
	assert.Error(t, err, "a stopped server must not accept connections")
}
