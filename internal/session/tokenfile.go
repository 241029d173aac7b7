package session

import (
	"os"
	"path/filepath"
)

// TokenFile persists the bearer token across runs. The session store has
// exclusive ownership of it; no other component reads or writes the token.
type TokenFile struct {
	path string
}

// NewTokenFile creates a TokenFile at the given path.
func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

// DefaultTokenPath returns the default token location.
func DefaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".truenumber/token"
	}
	return filepath.Join(home, ".truenumber", "token")
}

// Load reads the persisted token. A missing file is not an error and
// returns an empty token.
func (f *TokenFile) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// Save writes the token, creating the parent directory if needed.
func (f *TokenFile) Save(token string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(token), 0600)
}

// Clear removes the persisted token. Removing an already-missing token is
// not an error.
func (f *TokenFile) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
