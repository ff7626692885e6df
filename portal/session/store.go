package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// TokenKey is the key under which the token is persisted
const TokenKey = "token"

// TokenStore persists a single bearer token
type TokenStore interface {
	// Load returns the token or an empty string if there is none
	Load() (string, error)
	// Save persists the token
	Save(token string) error
	// Clear removes the token
	Clear() error
}

// MemoryStore keeps the token in memory
type MemoryStore struct {
	mutex sync.Mutex
	token string
}

// Load implements TokenStore
func (m *MemoryStore) Load() (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.token, nil
}

// Save implements TokenStore
func (m *MemoryStore) Save(token string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.token = token
	return nil
}

// Clear implements TokenStore
func (m *MemoryStore) Clear() error {
	return m.Save("")
}

// FileStore keeps the token in a JSON file which is only readable by the owner.
// The file holds a single object with the key "token".
type FileStore struct {
	Path string
}

// DefaultFileStore returns a file store in the user's config directory
func DefaultFileStore() (*FileStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("no config directory: %w", err)
	}
	return &FileStore{Path: filepath.Join(dir, "ticketportal", "session.json")}, nil
}

// Load implements TokenStore
func (f *FileStore) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", f.Path, err)
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return "", fmt.Errorf("cannot parse %s: %w", f.Path, err)
	}
	return values[TokenKey], nil
}

// Save implements TokenStore
func (f *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("cannot create directory for %s: %w", f.Path, err)
	}
	data, err := json.Marshal(map[string]string{TokenKey: token})
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write %s: %w", f.Path, err)
	}
	return nil
}

// Clear implements TokenStore
func (f *FileStore) Clear() error {
	err := os.Remove(f.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot remove %s: %w", f.Path, err)
	}
	return nil
}
