// Package favorites keeps the verses a user chose to save. The core only
// emits content; this is the thin local persistence collaborator behind it.
package favorites

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrStorageFull is returned when the store refuses further entries.
var ErrStorageFull = errors.New("favorites storage is full")

const (
	storeFilename = "favorites.yaml"

	// maxEntries bounds the store; this is a scrapbook, not an archive.
	maxEntries = 500
)

// Entry is one saved verse, keyed by an opaque user identity.
type Entry struct {
	UserID  string    `yaml:"user_id"`
	Text    string    `yaml:"text"`
	SavedAt time.Time `yaml:"saved_at"`
}

type storeFile struct {
	Entries []Entry `yaml:"entries"`
}

// Store persists entries to a YAML file under the data directory.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore opens (or will create) the store at dir.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, storeFilename)}
}

func (s *Store) load() (*storeFile, error) {
	var sf storeFile
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &sf, nil
		}
		return nil, fmt.Errorf("failed to read favorites: %w", err)
	}
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse favorites: %w", err)
	}
	return &sf, nil
}

// Save appends an entry. Returns ErrStorageFull once the cap is reached.
func (s *Store) Save(userID, text string, now time.Time) error {
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sf, err := s.load()
	if err != nil {
		return err
	}
	if len(sf.Entries) >= maxEntries {
		return ErrStorageFull
	}

	sf.Entries = append(sf.Entries, Entry{UserID: userID, Text: text, SavedAt: now})

	data, err := yaml.Marshal(sf)
	if err != nil {
		return fmt.Errorf("failed to marshal favorites: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write favorites: %w", err)
	}
	return nil
}

// List returns the entries saved by userID, newest last.
func (s *Store) List(userID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sf, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range sf.Entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}
