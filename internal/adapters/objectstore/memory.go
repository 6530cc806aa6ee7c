package objectstore

import (
	"context"
	"sort"
	"sync"

	"github.com/SscSPs/invoice_review_app/internal/core/ports"
)

// MemoryStore is an in-process object store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]struct{}
}

var _ ports.ObjectStore = (*MemoryStore)(nil)

// NewMemoryStore returns a store already holding keys.
func NewMemoryStore(keys ...string) *MemoryStore {
	m := &MemoryStore{objects: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		m.objects[k] = struct{}{}
	}
	return m
}

// Put records an uploaded object.
func (m *MemoryStore) Put(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = struct{}{}
}

// Has reports whether key is stored.
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ports.ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
