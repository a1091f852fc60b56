package scrape

import (
	"github.com/jonesrussell/goscrape/internal/cache"
)

// ParseFunc turns a fetched body into an opaque document for the
// stage's transform.
type ParseFunc func(body string, c Context) (any, error)

// ProcessFunc is a stage's transform. It may return a single Context or
// a []Context; the executor normalizes both forms.
type ProcessFunc func(doc any, c Context) (any, error)

// ErrorHandlerFunc decides what a definitive fetch failure means for a
// stage: return contexts (possibly none) to prune or substitute the
// branch, or return an error to abort the run.
type ErrorHandlerFunc func(url string, fetchErr error) ([]Context, error)

// URLFunc resolves the fetch URL for a stage from its input context.
type URLFunc func(c Context) (string, error)

// CacheKeyFunc derives a cache key from a stage's input context. It
// overrides the CacheTemplate option when set.
type CacheKeyFunc func(c Context) (string, error)

// PredicateFunc is an inclusion predicate over contexts.
type PredicateFunc func(c Context) bool

// PostprocessFunc transforms the merged child sequence at every
// recursion depth, e.g. for deduplication or sorting.
type PostprocessFunc func(contexts []Context) []Context

// Options configures a run and individual stages. Three layers merge
// with documented precedence: stage-declared options override call
// options, which override the engine defaults. A zero field means
// "not set at this layer".
type Options struct {
	// CacheTemplate derives the stage's cache key from the input
	// context (see FormatKey). Absent together with CacheKeyFn, the
	// stage invocation is never persisted to the processed cache.
	CacheTemplate string
	// CacheKeyFn derives the cache key; overrides CacheTemplate.
	CacheKeyFn CacheKeyFunc
	// ErrorHandler routes definitive fetch failures.
	ErrorHandler ErrorHandlerFunc
	// HTMLCache stores raw fetched bodies. Nil means no caching.
	HTMLCache cache.Backend
	// ProcessedCache stores normalized stage results. Nil means no
	// caching.
	ProcessedCache cache.Backend
	// ParseFn parses fetched bodies. Defaults to goquery HTML parsing.
	ParseFn ParseFunc
	// ProcessFn is the stage transform. Normally declared on the stage.
	ProcessFn ProcessFunc
	// Retries bounds fetch attempts for transient failures.
	Retries int
	// Updatable marks a stage as opted in to forced refresh.
	Updatable bool
	// Update, set per call, forces refresh of updatable stages.
	Update bool
	// URLFn resolves the fetch URL. Defaults to reading the url field.
	URLFn URLFunc
	// Only keeps contexts compatible with at least one pattern.
	Only []Context
	// OnlyFn keeps contexts satisfying the predicate; overrides Only.
	OnlyFn PredicateFunc
	// Postprocess transforms each recursion level's context sequence.
	Postprocess PostprocessFunc
	// Scope resolves bare stage identifiers.
	Scope string
	// Concurrency > 1 expands sibling subtrees in parallel.
	Concurrency int
}

// overlay returns o with every field that is set in higher replacing the
// corresponding field of o. Boolean options only toggle on: an unset
// bool at a higher layer cannot clear a lower one.
func (o Options) overlay(higher Options) Options {
	out := o

	if higher.CacheTemplate != "" {
		out.CacheTemplate = higher.CacheTemplate
	}
	if higher.CacheKeyFn != nil {
		out.CacheKeyFn = higher.CacheKeyFn
	}
	if higher.ErrorHandler != nil {
		out.ErrorHandler = higher.ErrorHandler
	}
	if higher.HTMLCache != nil {
		out.HTMLCache = higher.HTMLCache
	}
	if higher.ProcessedCache != nil {
		out.ProcessedCache = higher.ProcessedCache
	}
	if higher.ParseFn != nil {
		out.ParseFn = higher.ParseFn
	}
	if higher.ProcessFn != nil {
		out.ProcessFn = higher.ProcessFn
	}
	if higher.Retries > 0 {
		out.Retries = higher.Retries
	}
	if higher.Updatable {
		out.Updatable = true
	}
	if higher.Update {
		out.Update = true
	}
	if higher.URLFn != nil {
		out.URLFn = higher.URLFn
	}
	if len(higher.Only) > 0 {
		out.Only = higher.Only
	}
	if higher.OnlyFn != nil {
		out.OnlyFn = higher.OnlyFn
	}
	if higher.Postprocess != nil {
		out.Postprocess = higher.Postprocess
	}
	if higher.Scope != "" {
		out.Scope = higher.Scope
	}
	if higher.Concurrency > 0 {
		out.Concurrency = higher.Concurrency
	}

	return out
}

// backendOrNoop resolves a cache option into a concrete backend handle.
func backendOrNoop(b cache.Backend) cache.Backend {
	if b == nil {
		return cache.NewNoop()
	}
	return b
}

// keep reports whether a merged child context passes the run's
// inclusion filter.
func (o Options) keep(c Context) bool {
	if o.OnlyFn != nil {
		return o.OnlyFn(c)
	}
	if len(o.Only) == 0 {
		return true
	}
	for _, pattern := range o.Only {
		if Compatible(pattern, c) {
			return true
		}
	}
	return false
}

// filter applies the inclusion predicate and the postprocess transform
// to one recursion level's merged contexts.
func (o Options) filter(contexts []Context) []Context {
	if o.OnlyFn != nil || len(o.Only) > 0 {
		kept := make([]Context, 0, len(contexts))
		for _, c := range contexts {
			if o.keep(c) {
				kept = append(kept, c)
			}
		}
		contexts = kept
	}

	if o.Postprocess != nil {
		contexts = o.Postprocess(contexts)
	}

	return contexts
}
