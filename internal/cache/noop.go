package cache

import "context"

// NoopBackend discards writes and always misses on reads. It is the
// backend used when caching is disabled for a stage.
type NoopBackend struct{}

// NewNoop creates a no-op backend.
func NewNoop() *NoopBackend {
	return &NoopBackend{}
}

// LoadRaw always reports a miss.
func (n *NoopBackend) LoadRaw(_ context.Context, _ string) (string, bool) {
	return "", false
}

// SaveRaw discards the body.
func (n *NoopBackend) SaveRaw(_ context.Context, _, _ string) {}

// LoadValue always reports a miss.
func (n *NoopBackend) LoadValue(_ context.Context, _ string) ([]Record, bool) {
	return nil, false
}

// SaveValue discards the records.
func (n *NoopBackend) SaveValue(_ context.Context, _ string, _ []Record) {}
