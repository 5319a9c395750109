// Package store persists small string key/value settings in a YAML file.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore is a YAML-backed key/value store. Every read goes to disk so
// writes from other processes are observed.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// New returns a store rooted at path. The file is created on first write.
func New(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value for key and whether it is set.
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// All returns a copy of every stored value.
func (s *FileStore) All() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// SetMany writes all values in one atomic file replacement.
func (s *FileStore) SetMany(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}
	return s.write(current)
}

// Set writes a single value.
func (s *FileStore) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

// Delete removes keys. Missing keys are ignored.
func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := current[k]; ok {
			delete(current, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.write(current)
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read store %q: %w", s.path, err)
	}
	return decode(data, s.path)
}

func decode(data []byte, path string) (map[string]string, error) {
	values := map[string]string{}
	if strings.TrimSpace(string(data)) == "" {
		return values, nil
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode store %q: %w", path, err)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

// write replaces the file via a temp file in the same directory.
func (s *FileStore) write(values map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("ensure store dir: %w", err)
	}

	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace store %q: %w", s.path, err)
	}
	return nil
}

// DefaultPath selects XDG_STATE_HOME when available, otherwise ~/.local/state.
func DefaultPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "baserah", "voice.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for store: %w", err)
	}
	return filepath.Join(home, ".local", "state", "baserah", "voice.yaml"), nil
}
