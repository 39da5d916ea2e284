package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an in-process PathStore. Each operation holds the lock for its
// full duration, which gives the same per-path atomicity a real backing
// store provides.
type Memory struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]json.RawMessage)}
}

func (m *Memory) Read(_ context.Context, path string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.values[path]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, nil
}

func (m *Memory) Write(_ context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[path] = raw
	return nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, path)
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var paths []string
	for p := range m.values {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Snapshot returns a copy of the full store contents. Tests use this to
// assert zero net diff after a rolled-back saga.
func (m *Memory) Snapshot() map[string]json.RawMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(m.values))
	for k, v := range m.values {
		c := make(json.RawMessage, len(v))
		copy(c, v)
		out[k] = c
	}
	return out
}

// Len returns the number of stored paths.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
