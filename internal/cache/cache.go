// Package cache provides the key/value backends used by the scraping
// engine to persist raw page bodies and processed stage results.
//
// Backends are total: a lookup miss yields ok == false, never an error.
// Storage-layer faults are the backend's concern; the built-in persistent
// backends log them and report a miss rather than surfacing them to the
// engine.
package cache

import "context"

// Record is one processed context as stored in a backend. Backends store
// plain field maps so they stay decoupled from the engine's context type.
type Record = map[string]any

// Backend stores raw page bodies and processed result sequences, each
// keyed by a caller-derived string.
type Backend interface {
	// LoadRaw returns the cached raw body for key, if present.
	LoadRaw(ctx context.Context, key string) (string, bool)
	// SaveRaw stores the raw body under key.
	SaveRaw(ctx context.Context, key, body string)
	// LoadValue returns the cached processed records for key, if present.
	LoadValue(ctx context.Context, key string) ([]Record, bool)
	// SaveValue stores the processed records under key.
	SaveValue(ctx context.Context, key string, records []Record)
}

// cacheDirName is the subdirectory of the user cache dir holding the
// default-located backends.
const cacheDirName = "goscrape"

// DefaultHTML returns the default-located persistent backend for raw page
// bodies. It falls back to an in-memory backend when the user cache
// directory cannot be determined.
func DefaultHTML() Backend {
	return defaultFS("html")
}

// DefaultProcessed returns the default-located persistent backend for
// processed stage results.
func DefaultProcessed() Backend {
	return defaultFS("processed")
}
