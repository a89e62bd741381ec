package file

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// jsonStore persists one entity type as one JSON file per record under a
// dedicated directory. A store-level lock makes read-modify-write updates
// atomic with respect to other goroutines in this process.
type jsonStore[T any] struct {
	mu  sync.RWMutex
	dir string
}

func newJSONStore[T any](root, entity string) (*jsonStore[T], error) {
	dir := filepath.Join(root, entity)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", entity, err)
	}

	return &jsonStore[T]{dir: dir}, nil
}

func (s *jsonStore[T]) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *jsonStore[T]) save(id string, record *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(id, record)
}

func (s *jsonStore[T]) write(id string, record *T) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", id, err)
	}

	if err := os.WriteFile(s.path(id), data, 0o644); err != nil {
		return fmt.Errorf("failed to write record %s: %w", id, err)
	}

	return nil
}

// get returns the record, or (nil, false, nil) when it does not exist.
func (s *jsonStore[T]) get(id string) (*T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(id)
}

func (s *jsonStore[T]) read(id string) (*T, bool, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to read record %s: %w", id, err)
	}

	record := new(T)
	if err := json.Unmarshal(data, record); err != nil {
		return nil, false, fmt.Errorf("failed to decode record %s: %w", id, err)
	}

	return record, true, nil
}

func (s *jsonStore[T]) list() ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := fs.Glob(os.DirFS(s.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]*T, 0, len(files))

	for _, file := range files {
		id := file[:len(file)-len(".json")]

		record, found, err := s.read(id)
		if err != nil {
			return nil, err
		}

		if found {
			records = append(records, record)
		}
	}

	return records, nil
}

// update applies mutate to the stored record under the write lock. The
// record must exist.
func (s *jsonStore[T]) update(id string, mutate func(record *T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, found, err := s.read(id)
	if err != nil {
		return err
	}

	if !found {
		return os.ErrNotExist
	}

	if err := mutate(record); err != nil {
		return err
	}

	return s.write(id, record)
}

func (s *jsonStore[T]) delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist
		}

		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}

	return nil
}
