// Package scrape implements the pipeline execution and tree-traversal
// engine: per-stage execution and the demand-driven recursive driver that
// expands a tree of stage invocations into a flat sequence of leaf
// records.
package scrape

import (
	"reflect"

	"github.com/jonesrussell/goscrape/internal/cache"
)

// Reserved context field names.
const (
	// FieldProcessor names the next stage to run. A context without it
	// is a leaf.
	FieldProcessor = "processor"
	// FieldURL is the address to fetch for a stage. Required whenever
	// FieldProcessor is present.
	FieldURL = "url"
	// FieldCacheKey is injected by the stage executor before the stage's
	// transform runs. Callers never supply it.
	FieldCacheKey = "cache-key"
)

// Context is one unit of pipeline state: a mapping from field name to
// value. Stages return new contexts rather than mutating their input;
// the driver never revisits a context after consuming it.
type Context map[string]any

// Clone returns a shallow copy of the context.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// With returns a copy of the context with key set to value.
func (c Context) With(key string, value any) Context {
	out := c.Clone()
	out[key] = value
	return out
}

// Without returns a copy of the context with the given keys removed.
func (c Context) Without(keys ...string) Context {
	out := c.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Processor returns the stage identifier named by the context, or ""
// for a leaf.
func (c Context) Processor() string {
	name, _ := c[FieldProcessor].(string)
	return name
}

// URL returns the context's url field, or "".
func (c Context) URL() string {
	u, _ := c[FieldURL].(string)
	return u
}

// Merge combines a parent context with a child produced by its stage.
// Child fields win on collisions; every parent field not overwritten is
// preserved, propagating accumulated data down the tree.
func Merge(parent, child Context) Context {
	out := make(Context, len(parent)+len(child))
	for k, v := range parent {
		out[k] = v
	}
	for k, v := range child {
		out[k] = v
	}
	return out
}

// Compatible reports whether two contexts agree on their shared fields:
// for every field present in both, the values must be equal. Fields
// absent from either side impose no constraint.
func Compatible(a, b Context) bool {
	for k, av := range a {
		if bv, ok := b[k]; ok && !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}

// toRecords converts contexts to the cache's record representation.
func toRecords(contexts []Context) []cache.Record {
	records := make([]cache.Record, len(contexts))
	for i, c := range contexts {
		records[i] = cache.Record(c)
	}
	return records
}

// fromRecords converts cached records back to contexts.
func fromRecords(records []cache.Record) []Context {
	contexts := make([]Context, len(records))
	for i, r := range records {
		contexts[i] = Context(r)
	}
	return contexts
}
