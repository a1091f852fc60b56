// Package metrics collects per-run counters for the scraping engine.
package metrics

import (
	"sync"
	"time"
)

// Stats accumulates the counters of one scraping run. All methods are
// safe for concurrent use and are no-ops on a nil receiver, so callers
// can wire a Stats unconditionally.
type Stats struct {
	mu        sync.Mutex
	startTime time.Time

	pagesFetched       int64
	rawCacheHits       int64
	processedCacheHits int64
	retries            int64
	prunedBranches     int64
	leaves             int64
}

// New creates a Stats with the clock started.
func New() *Stats {
	return &Stats{startTime: time.Now()}
}

// PageFetched records one successful transport fetch.
func (s *Stats) PageFetched() {
	s.add(&s.pagesFetched)
}

// RawCacheHit records a fetch served from the raw body cache.
func (s *Stats) RawCacheHit() {
	s.add(&s.rawCacheHits)
}

// ProcessedCacheHit records a stage invocation served from the
// processed result cache.
func (s *Stats) ProcessedCacheHit() {
	s.add(&s.processedCacheHits)
}

// Retry records one retried transient fetch failure.
func (s *Stats) Retry() {
	s.add(&s.retries)
}

// BranchPruned records a branch dropped by the error handler.
func (s *Stats) BranchPruned() {
	s.add(&s.prunedBranches)
}

// Leaf records one emitted leaf record.
func (s *Stats) Leaf() {
	s.add(&s.leaves)
}

func (s *Stats) add(counter *int64) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	*counter++
}

// Snapshot is a point-in-time copy of the run counters.
type Snapshot struct {
	PagesFetched       int64
	RawCacheHits       int64
	ProcessedCacheHits int64
	Retries            int64
	PrunedBranches     int64
	Leaves             int64
	Elapsed            time.Duration
}

// Snapshot returns the current counter values. A nil Stats yields a
// zero snapshot.
func (s *Stats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		PagesFetched:       s.pagesFetched,
		RawCacheHits:       s.rawCacheHits,
		ProcessedCacheHits: s.processedCacheHits,
		Retries:            s.retries,
		PrunedBranches:     s.prunedBranches,
		Leaves:             s.leaves,
		Elapsed:            time.Since(s.startTime),
	}
}

// Fields returns the snapshot as alternating key/value pairs for
// structured logging.
func (s Snapshot) Fields() []any {
	return []any{
		"pages_fetched", s.PagesFetched,
		"raw_cache_hits", s.RawCacheHits,
		"processed_cache_hits", s.ProcessedCacheHits,
		"retries", s.Retries,
		"pruned_branches", s.PrunedBranches,
		"leaves", s.Leaves,
		"elapsed", s.Elapsed.String(),
	}
}
