package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/hamed0406/uptimeworker/internal/repo"
)

var _ repo.AdminStore = (*Store)(nil)

// Store keeps check records in process memory. Values are copied on the
// way in and out so callers never share backing arrays with the store.
type Store struct {
	mu     sync.RWMutex
	checks map[string][]byte
}

func New() *Store {
	return &Store{checks: make(map[string][]byte)}
}

func (m *Store) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.checks))
	for id := range m.checks {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

func (m *Store) Read(ctx context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.checks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return slices.Clone(b), nil
}

func (m *Store) Update(ctx context.Context, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checks[id]; !ok {
		return repo.ErrNotFound
	}
	m.checks[id] = slices.Clone(data)
	return nil
}

func (m *Store) Create(ctx context.Context, id string, data []byte) error {
	if err := repo.ValidID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checks[id]; ok {
		return repo.ErrExists
	}
	m.checks[id] = slices.Clone(data)
	return nil
}

func (m *Store) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checks[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.checks, id)
	return nil
}

func (m *Store) Close() error { return nil }
