package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps counts in a JSON object of day → count, the
// search-count.json layout. An unreadable file is treated as empty.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the count for day.
func (s *FileStore) Load(_ context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.read()
	if err != nil {
		return 0, err
	}
	return counts[day], nil
}

// Save sets the count for day, keeping other days untouched.
func (s *FileStore) Save(_ context.Context, day string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.read()
	if err != nil {
		return err
	}
	counts[day] = count

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create quota directory: %w", err)
	}
	data, err := json.MarshalIndent(counts, "", "    ")
	if err != nil {
		return fmt.Errorf("encode search counts: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write search counts: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace search counts: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() (map[string]int, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read search counts: %w", err)
	}

	counts := make(map[string]int)
	if err := json.Unmarshal(data, &counts); err != nil {
		slog.Warn("search count file is corrupt, starting from empty",
			slog.String("path", s.path),
			slog.Any("error", err),
		)
		return make(map[string]int), nil
	}
	return counts, nil
}
