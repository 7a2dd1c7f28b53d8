package obixsim

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Record is one point served by the simulator. Path is relative to the
// points root, e.g. "floor1/temp/".
type Record struct {
	Path     string `json:"path"`
	Writable bool   `json:"writable"`
	XML      string `json:"xml"`
}

// Store persists simulator points.
type Store interface {
	Get(ctx context.Context, path string) (Record, bool, error)
	Put(ctx context.Context, rec Record) error
	List(ctx context.Context) ([]string, error)
}

// normalizePath trims leading slashes and ensures a trailing one.
func normalizePath(p string) string {
	p = strings.TrimLeft(p, "/")
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

type memoryStore struct {
	mu     sync.RWMutex
	points map[string]Record
}

// NewMemoryStore returns an in-process Store.
func NewMemoryStore() Store {
	return &memoryStore{points: map[string]Record{}}
}

func (m *memoryStore) Get(_ context.Context, path string) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.points[normalizePath(path)]
	return rec, ok, nil
}

func (m *memoryStore) Put(_ context.Context, rec Record) error {
	rec.Path = normalizePath(rec.Path)
	m.mu.Lock()
	m.points[rec.Path] = rec
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) List(context.Context) ([]string, error) {
	m.mu.RLock()
	out := make([]string, 0, len(m.points))
	for p := range m.points {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}
