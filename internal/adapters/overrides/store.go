package overrides

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
)

// ErrNotFound reports removal of a pattern that is not in the store.
var ErrNotFound = errors.New("overrides: pattern not found")

// FileStore implements ports.OverrideStore over a single flat JSON file
// holding an ordered list of pattern -> device type entries. The file is
// loaded lazily, cached in memory for the process lifetime, and rewritten
// wholesale on every mutation. Cross-process writers are not synchronized;
// last write wins.
type FileStore struct {
	path string

	mu      sync.Mutex
	loaded  bool
	entries []domain.Override
}

// NewFileStore points the store at path without touching the file yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// List returns the overrides in their stored order.
func (s *FileStore) List() ([]domain.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	out := make([]domain.Override, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Add stores a lowercase pattern mapping. Re-adding an existing pattern
// updates its device type in place, keeping its position.
func (s *FileStore) Add(pattern string, deviceType domain.DeviceType) error {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return errors.New("overrides: empty pattern")
	}
	dt, ok := domain.ParseDeviceType(string(deviceType))
	if !ok {
		return fmt.Errorf("overrides: invalid device type %q", deviceType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	for i := range s.entries {
		if s.entries[i].Pattern == pattern {
			s.entries[i].DeviceType = dt
			return s.persist()
		}
	}
	s.entries = append(s.entries, domain.Override{Pattern: pattern, DeviceType: dt})
	return s.persist()
}

// Remove deletes a pattern. A missing pattern is reported as ErrNotFound
// and leaves the file untouched.
func (s *FileStore) Remove(pattern string) error {
	pattern = strings.ToLower(strings.TrimSpace(pattern))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	for i := range s.entries {
		if s.entries[i].Pattern == pattern {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return s.persist()
		}
	}
	return ErrNotFound
}

// Reload discards the in-memory cache and re-reads the file on next use.
func (s *FileStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.entries = nil
	return s.load()
}

// load reads the file once per cache lifetime. Callers hold s.mu.
func (s *FileStore) load() error {
	if s.loaded {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.entries = nil
			s.loaded = true
			return nil
		}
		return fmt.Errorf("overrides: read %s: %w", s.path, err)
	}
	var entries []domain.Override
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("overrides: parse %s: %w", s.path, err)
	}
	s.entries = entries
	s.loaded = true
	return nil
}

// persist rewrites the whole file. Callers hold s.mu.
func (s *FileStore) persist() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("overrides: create dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
