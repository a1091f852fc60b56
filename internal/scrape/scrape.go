package scrape

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonesrussell/goscrape/internal/fetch"
	"github.com/jonesrussell/goscrape/internal/logger"
	"github.com/jonesrussell/goscrape/internal/metrics"
)

// Config configures an Engine.
type Config struct {
	// Registry resolves stage identifiers and named seeds.
	Registry *Registry
	// Fetcher retrieves page bodies.
	Fetcher *fetch.Fetcher
	// Logger receives run activity. Defaults to a no-op.
	Logger logger.Interface
	// Defaults are the lowest-precedence option layer.
	Defaults Options
	// Stats receives run counters. Optional.
	Stats *metrics.Stats
}

// Engine expands a seed sequence of contexts into a flat sequence of
// leaf records by running pipeline stages on demand.
type Engine struct {
	registry *Registry
	fetcher  *fetch.Fetcher
	log      logger.Interface
	defaults Options
	stats    *metrics.Stats
}

// New creates an Engine. Built-in defaults (HTML parsing, url-field
// lookup, the prune-not-found error handler and the retry bound) fill
// any unset fields of cfg.Defaults.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOp()
	}

	e := &Engine{
		registry: cfg.Registry,
		fetcher:  cfg.Fetcher,
		log:      cfg.Logger.WithComponent("scrape"),
		stats:    cfg.Stats,
	}

	e.defaults = Options{
		ParseFn:      ParseHTML,
		URLFn:        urlFromContext,
		ErrorHandler: e.pruneNotFound,
		Retries:      fetch.DefaultRetries,
	}.overlay(cfg.Defaults)

	return e
}

// urlFromContext is the default URLFn: it reads the context's url
// field. A context that reached a stage without one is invalid.
func urlFromContext(c Context) (string, error) {
	if u := c.URL(); u != "" {
		return u, nil
	}
	return "", errors.New("context has no url field")
}

// pruneNotFound is the default error handler: a "not found" class of
// definitive failure prunes the branch with a warning; every other
// definitive failure aborts the run.
func (e *Engine) pruneNotFound(url string, fetchErr error) ([]Context, error) {
	var ferr *fetch.Error
	if errors.As(fetchErr, &ferr) && ferr.NotFound() {
		e.log.Warn("pruning branch: resource not found", "url", url, "status", ferr.Status)
		e.stats.BranchPruned()
		return nil, nil
	}
	return nil, fetchErr
}

// Run expands the seed contexts under the given call options and
// returns a demand-driven iterator over the resulting leaf records.
// No fetching happens until the iterator is advanced.
func (e *Engine) Run(ctx context.Context, seeds []Context, opts Options) *Leaves {
	runID := uuid.NewString()
	e.log.Info("starting scrape run", "run_id", runID, "seeds", len(seeds))

	items := make([]Context, len(seeds))
	copy(items, seeds)

	return &Leaves{
		engine: e,
		ctx:    ctx,
		opts:   opts,
		runID:  runID,
		stack:  []frame{{items: items}},
	}
}

// RunNamed is Run with the seed sequence produced by a registered seed
// producer.
func (e *Engine) RunNamed(ctx context.Context, seedName string, opts Options) (*Leaves, error) {
	seed, err := e.registry.ResolveSeed(seedName)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, seed(), opts), nil
}

// frame is one level of pending contexts in the expansion stack.
type frame struct {
	items []Context
	next  int
}

// Leaves iterates over the leaf records of a run, realizing one leaf at
// a time: producing the Nth leaf triggers no work belonging to later
// subtrees. A Leaves is exhausted once Next returns false; re-run the
// pipeline for a fresh traversal.
type Leaves struct {
	engine *Engine
	ctx    context.Context
	opts   Options
	runID  string

	stack   []frame
	current Context
	err     error
	done    bool
	started bool
}

// Next advances to the next leaf record. It returns false when the run
// is exhausted or failed; check Err afterwards.
func (l *Leaves) Next() bool {
	if l.done {
		return false
	}

	if !l.started {
		l.started = true
		if l.opts.Concurrency > 1 {
			l.materializeParallel()
			if l.done {
				return false
			}
		}
	}

	for len(l.stack) > 0 {
		if ctxErr := l.ctx.Err(); ctxErr != nil {
			l.fail(fmt.Errorf("run cancelled: %w", ctxErr))
			return false
		}

		top := &l.stack[len(l.stack)-1]
		if top.next >= len(top.items) {
			l.stack = l.stack[:len(l.stack)-1]
			continue
		}

		c := top.items[top.next]
		top.next++

		procName := c.Processor()
		if procName == "" {
			l.current = c.Without(FieldURL)
			l.engine.stats.Leaf()
			return true
		}

		children, err := l.expand(c, procName)
		if err != nil {
			l.fail(err)
			return false
		}
		if len(children) > 0 {
			l.stack = append(l.stack, frame{items: children})
		}
	}

	l.done = true
	fields := []any{"run_id", l.runID}
	if l.engine.stats != nil {
		fields = append(fields, l.engine.stats.Snapshot().Fields()...)
	}
	l.engine.log.Info("scrape run finished", fields...)
	return false
}

// expand runs the stage named by c and returns the merged, filtered and
// post-processed child contexts ready for recursion. Filtering and
// post-processing use the call-scoped options at every recursion depth.
func (l *Leaves) expand(c Context, procName string) ([]Context, error) {
	return l.engine.expandOne(l.ctx, c, procName, l.opts)
}

// materializeParallel expands the whole tree with parallel sibling
// subtrees and replaces the stack with the finished leaf sequence.
// Parallel runs trade strict demand-driven evaluation for throughput;
// output order stays deterministic.
func (l *Leaves) materializeParallel() {
	seeds := l.stack[0].items
	leaves, err := l.engine.expandAll(l.ctx, seeds, l.opts)
	if err != nil {
		l.fail(err)
		return
	}
	l.stack = []frame{{items: leaves}}
}

// fail records a fatal error and terminates the iteration.
func (l *Leaves) fail(err error) {
	l.err = err
	l.done = true
	l.stack = nil
	l.engine.log.Error("scrape run failed", "run_id", l.runID, "error", err.Error())
}

// Record returns the leaf produced by the last successful Next call.
func (l *Leaves) Record() Context {
	return l.current
}

// Err returns the fatal error that terminated the run, if any.
func (l *Leaves) Err() error {
	return l.err
}

// Collect drains the iterator into a slice.
func (l *Leaves) Collect() ([]Context, error) {
	var records []Context
	for l.Next() {
		records = append(records, l.Record())
	}
	if l.err != nil {
		return nil, l.err
	}
	return records, nil
}
