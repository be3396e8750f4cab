package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ListStore persists a slice of records as a pretty-printed JSON file.
//
// There is deliberately no in-memory cache: other processes write the same
// files, so All reloads from disk on every call. Mutations are
// read-modify-write and the engine is assumed to be the sole writer of any
// given field, so no file locking is used.
type ListStore[T any] struct {
	path string
}

// NewListStore creates a store backed by the given file path. The file does
// not need to exist yet; a missing file reads as an empty list.
func NewListStore[T any](path string) *ListStore[T] {
	return &ListStore[T]{path: path}
}

// Path returns the backing file path.
func (s *ListStore[T]) Path() string {
	return s.path
}

// All reloads and returns every record in the collection.
func (s *ListStore[T]) All() ([]T, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	if len(data) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}

	return items, nil
}

// Replace overwrites the collection with the given records.
func (s *ListStore[T]) Replace(items []T) error {
	if items == nil {
		items = []T{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", s.path, err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}

	return nil
}

// update reloads the collection, applies fn to the first record for which
// match returns true, and saves. It reports whether a record matched.
func (s *ListStore[T]) update(match func(T) bool, fn func(*T)) (bool, error) {
	items, err := s.All()
	if err != nil {
		return false, err
	}

	for i := range items {
		if match(items[i]) {
			fn(&items[i])
			return true, s.Replace(items)
		}
	}

	return false, nil
}
