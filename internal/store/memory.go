package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Specs are keyed by environment and name.
type MemoryStore struct {
	mu    sync.RWMutex
	specs map[specKey]Spec
}

type specKey struct {
	env  string
	name string
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		specs: make(map[specKey]Spec),
	}
}

// GetAllSpecs returns the specs of env sorted by name.
func (m *MemoryStore) GetAllSpecs(ctx context.Context, env string) ([]Spec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Spec, 0, len(m.specs))
	for k, spec := range m.specs {
		if k.env == env {
			result = append(result, spec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MemoryStore) GetSpec(ctx context.Context, name, env string) (*Spec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	spec, exists := m.specs[specKey{env: env, name: name}]
	if !exists {
		return nil, ErrNotFound
	}
	return &spec, nil
}

func (m *MemoryStore) UpsertSpec(ctx context.Context, params UpsertParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.specs[specKey{env: params.Env, name: params.Name}] = params.toSpec(time.Now().UTC())
	return nil
}

func (m *MemoryStore) DeleteSpec(ctx context.Context, name, env string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.specs, specKey{env: env, name: name})
	return nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}
