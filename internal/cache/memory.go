package cache

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process volatile backend. It is safe for
// concurrent use across lazily interleaved or parallel branches.
type MemoryBackend struct {
	mu     sync.RWMutex
	raw    map[string]string
	values map[string][]Record
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{
		raw:    make(map[string]string),
		values: make(map[string][]Record),
	}
}

// LoadRaw returns the cached raw body for key, if present.
func (m *MemoryBackend) LoadRaw(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	body, ok := m.raw[key]
	return body, ok
}

// SaveRaw stores the raw body under key.
func (m *MemoryBackend) SaveRaw(_ context.Context, key, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.raw[key] = body
}

// LoadValue returns the cached processed records for key, if present.
func (m *MemoryBackend) LoadValue(_ context.Context, key string) ([]Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, ok := m.values[key]
	if !ok {
		return nil, false
	}

	// Hand out a copy so callers cannot mutate the cached records.
	out := make([]Record, len(records))
	copy(out, records)
	return out, true
}

// SaveValue stores the processed records under key.
func (m *MemoryBackend) SaveValue(_ context.Context, key string, records []Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]Record, len(records))
	copy(stored, records)
	m.values[key] = stored
}
