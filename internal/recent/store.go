package recent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

// DefaultLimit is how many names a store remembers unless told otherwise
const DefaultLimit = 3

// Store keeps the most recently visited cluster names, most recent first
type Store interface {
	Names() ([]string, error)
	Touch(name string) error
}

// touch moves name to the front of names and caps the result
func touch(names []string, name string, limit int) []string {
	out := make([]string, 0, len(names)+1)
	out = append(out, name)
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MemoryStore is a Store that lives only as long as the process
type MemoryStore struct {
	mu    sync.RWMutex
	limit int
	names []string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) Names() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.names...), nil
}

func (s *MemoryStore) Touch(name string) error {
	if name == "" {
		return fmt.Errorf("cluster name is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = touch(s.names, name, s.limit)
	return nil
}

// FileStore persists recent cluster names in a YAML file
type FileStore struct {
	mu    sync.Mutex
	path  string
	limit int
}

type recentFile struct {
	Clusters []string `json:"clusters"`
}

// NewFileStore creates a store backed by path. The file and its directory are
// created on the first Touch.
func NewFileStore(path string, limit int) *FileStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &FileStore{path: path, limit: limit}
}

func (s *FileStore) Names() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) Touch(name string) error {
	if name == "" {
		return fmt.Errorf("cluster name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.load()
	if err != nil {
		return err
	}
	names = touch(names, name, s.limit)

	data, err := yaml.Marshal(recentFile{Clusters: names})
	if err != nil {
		return fmt.Errorf("failed to encode recent clusters: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write recent clusters to %s: %w", s.path, err)
	}

	klog.V(2).InfoS("Recorded recent cluster", "cluster", name, "path", s.path)
	return nil
}

func (s *FileStore) load() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recent clusters from %s: %w", s.path, err)
	}

	var f recentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse recent clusters in %s: %w", s.path, err)
	}
	return f.Clusters, nil
}
