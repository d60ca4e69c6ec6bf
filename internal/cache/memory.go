package cache

import (
	"bytes"
	"context"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
)

// InMemoryCache keeps entries for the life of the process. Used by tests and by
// CACHE_BACKEND=memory, where losing the snapshot on restart is acceptable.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

var _ ListCache = (*InMemoryCache)(nil)

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{entries: map[string][]byte{}}
}

func (m *InMemoryCache) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	// stored slices are never mutated, so readers can share them
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *InMemoryCache) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok, nil
}

func (m *InMemoryCache) Put(_ context.Context, key, value string, opts PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok && opts.Condition == PutIfNoneMatch {
		return ErrAlreadyExists
	}
	m.entries[key] = []byte(value)
	return nil
}

func (m *InMemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *InMemoryCache) List(_ context.Context, prefix string, _ string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for _, key := range slices.Sorted(maps.Keys(m.entries)) {
		if rest, ok := strings.CutPrefix(key, prefix); ok {
			keys = append(keys, rest)
		}
	}
	return keys, nil
}
