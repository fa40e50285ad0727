package remote

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	gossh "golang.org/x/crypto/ssh"
)

// AuthorizedKeys is the set of public keys allowed to open the remote menu,
// read from an OpenSSH authorized_keys file
type AuthorizedKeys struct {
	path string

	mu   sync.RWMutex
	keys map[string]string // SHA256 fingerprint -> comment
}

// NewAuthorizedKeys creates an empty key set backed by path
func NewAuthorizedKeys(path string) *AuthorizedKeys {
	return &AuthorizedKeys{
		path: path,
		keys: make(map[string]string),
	}
}

// Load re-reads the file. A missing file allows nobody.
func (a *AuthorizedKeys) Load() error {
	data, err := os.ReadFile(a.path)
	if errors.Is(err, os.ErrNotExist) {
		a.set(make(map[string]string))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", a.path, err)
	}

	keys, err := ParseAuthorizedKeys(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", a.path, err)
	}
	a.set(keys)
	return nil
}

func (a *AuthorizedKeys) set(keys map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = keys
}

// Allowed reports whether key is in the set
func (a *AuthorizedKeys) Allowed(key gossh.PublicKey) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.keys[gossh.FingerprintSHA256(key)]
	return ok
}

// Len returns the number of keys in the set
func (a *AuthorizedKeys) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.keys)
}

// ParseAuthorizedKeys parses every entry of an authorized_keys file, keyed
// by fingerprint. Blank lines and comments are skipped.
func ParseAuthorizedKeys(data []byte) (map[string]string, error) {
	keys := make(map[string]string)

	rest := bytes.TrimSpace(data)
	for len(rest) > 0 {
		key, comment, _, next, err := gossh.ParseAuthorizedKey(rest)
		if err != nil {
			// ParseAuthorizedKey skips blank and comment lines itself, an
			// error here means no valid key remains
			if len(keys) == 0 {
				return nil, err
			}
			break
		}
		keys[gossh.FingerprintSHA256(key)] = comment
		rest = next
	}
	return keys, nil
}
