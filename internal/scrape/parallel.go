package scrape

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// expandAll expands every context in the sequence, running sibling
// subtrees in parallel, and returns the concatenated leaf records in
// input order regardless of fetch completion timing. Identical cache
// keys requested concurrently share one fetch via the fetcher's
// single-flight group.
func (e *Engine) expandAll(ctx context.Context, contexts []Context, opts Options) ([]Context, error) {
	results := make([][]Context, len(contexts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, c := range contexts {
		procName := c.Processor()
		if procName == "" {
			results[i] = []Context{c.Without(FieldURL)}
			continue
		}

		g.Go(func() error {
			children, err := e.expandOne(gctx, c, procName, opts)
			if err != nil {
				return err
			}

			leaves, err := e.expandAll(gctx, children, opts)
			if err != nil {
				return err
			}

			results[i] = leaves
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Context
	for _, leaves := range results {
		out = append(out, leaves...)
	}
	return out, nil
}

// expandOne runs one stage invocation and prepares its children for
// recursion: merge with the parent, filter, post-process.
func (e *Engine) expandOne(ctx context.Context, c Context, procName string, opts Options) ([]Context, error) {
	stage, err := e.registry.Resolve(procName, opts.Scope)
	if err != nil {
		return nil, err
	}

	children, err := e.runStage(ctx, procName, stage, c, opts)
	if err != nil {
		return nil, err
	}

	parent := c.Without(FieldProcessor)
	merged := make([]Context, len(children))
	for i, child := range children {
		merged[i] = Merge(parent, child)
	}

	return opts.filter(merged), nil
}
