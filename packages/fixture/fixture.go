// Package fixture persists the bearer token obtained at registration so that
// later scenarios, and later processes, can authenticate with it.
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultPath is where the token file lives when nothing else is configured.
const DefaultPath = "fixtures/token.json"

// ErrNoToken is returned by Load when no token has been saved yet.
var ErrNoToken = errors.New("no token saved")

// Token is the on-disk shape of the fixture.
type Token struct {
	Token string `json:"token"`
}

// Store saves and loads the bearer token.
type Store interface {
	Save(token string) error
	Load() (string, error)
	Path() string
}

// FileStore keeps the token as a small JSON document on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Save overwrites the fixture file, creating parent directories as needed.
func (s *FileStore) Save(token string) error {
	data, err := json.MarshalIndent(Token{Token: token}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating fixture directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("writing token fixture: %w", err)
	}
	return nil
}

func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("reading token fixture: %w", err)
	}

	var t Token
	if err := json.Unmarshal(data, &t); err != nil {
		return "", fmt.Errorf("parsing token fixture %s: %w", s.path, err)
	}
	if t.Token == "" {
		return "", ErrNoToken
	}
	return t.Token, nil
}

// MemoryStore holds the token in memory only.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Path() string {
	return ""
}

func (s *MemoryStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Load() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}
