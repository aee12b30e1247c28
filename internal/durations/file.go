package durations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/teemow/meetslots/internal/slots"
)

// FileStore keeps durations in a JSON object of the form {"2025-03-14": 30}.
type FileStore struct {
	path           string
	defaultMinutes int

	mu sync.Mutex
}

// NewFileStore returns a store backed by the file at path. The file is
// created on the first Save.
func NewFileStore(path string, defaultMinutes int) *FileStore {
	return &FileStore{
		path:           path,
		defaultMinutes: defaultMinutes,
	}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored duration for day or the default.
func (s *FileStore) Load(_ context.Context, day slots.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return 0, err
	}
	if minutes, ok := all[day.String()]; ok && minutes > 0 {
		return minutes, nil
	}
	return s.defaultMinutes, nil
}

// Save stores minutes for day. The whole file is rewritten atomically.
func (s *FileStore) Save(_ context.Context, day slots.Date, minutes int) error {
	if err := validateMinutes(minutes); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	all[day.String()] = minutes
	return s.write(all)
}

// All returns a copy of every stored duration.
func (s *FileStore) All(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// read must be called with mu held. A missing file is an empty store.
func (s *FileStore) read() (map[string]int, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot durations: %w", err)
	}

	all := map[string]int{}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse slot durations file %s: %w", s.path, err)
	}
	return all, nil
}

// write must be called with mu held.
func (s *FileStore) write(all map[string]int) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory for slot durations: %w", err)
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode slot durations: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".slot_durations-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write slot durations: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set permissions on slot durations: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close slot durations: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace slot durations file: %w", err)
	}
	return nil
}
