package remote

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

func TestParseAuthorizedKeys(t *testing.T) {
	first := newSigner(t).PublicKey()
	second := newSigner(t).PublicKey()

	data := "# laptop\n\n" +
		string(gossh.MarshalAuthorizedKey(first)) +
		"not a key at all\n" +
		string(gossh.MarshalAuthorizedKey(second))

	keys, err := ParseAuthorizedKeys([]byte(data))
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, gossh.FingerprintSHA256(first))
	assert.Contains(t, keys, gossh.FingerprintSHA256(second))

	keys, err = ParseAuthorizedKeys(nil)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = ParseAuthorizedKeys([]byte("garbage\n"))
	assert.Error(t, err)
}

func TestAuthorizedKeysLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_keys")
	allowed := newSigner(t).PublicKey()
	other := newSigner(t).PublicKey()

	keys := NewAuthorizedKeys(path)

	// A missing file allows nobody
	require.NoError(t, keys.Load())
	assert.Equal(t, 0, keys.Len())
	assert.False(t, keys.Allowed(allowed))

	require.NoError(t, os.WriteFile(path, gossh.MarshalAuthorizedKey(allowed), 0600))
	require.NoError(t, keys.Load())
	assert.True(t, keys.Allowed(allowed))
	assert.False(t, keys.Allowed(other))

	// Removing the key takes effect on the next load
	require.NoError(t, os.WriteFile(path, nil, 0600))
	require.NoError(t, keys.Load())
	assert.False(t, keys.Allowed(allowed))
}
