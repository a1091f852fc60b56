package scrape

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/goscrape/internal/fetch"
)

// runStage executes one pipeline stage for one input context and
// returns the stage's normalized child contexts.
func (e *Engine) runStage(
	ctx context.Context,
	stageID string,
	stage *Stage,
	input Context,
	callOpts Options,
) ([]Context, error) {
	opts := e.defaults.overlay(callOpts).overlay(stage.Options)

	htmlCache := backendOrNoop(opts.HTMLCache)
	processedCache := backendOrNoop(opts.ProcessedCache)

	key, err := deriveCacheKey(opts, input)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", stageID, err)
	}

	// Forced refresh requires both the call asking for it and the stage
	// opting in.
	force := opts.Update && opts.Updatable

	if key != "" && !force {
		if records, ok := processedCache.LoadValue(ctx, key); ok {
			e.log.Debug("processed cache hit", "stage", stageID, "key", key)
			e.stats.ProcessedCacheHit()
			return fromRecords(records), nil
		}
	}

	pageURL, err := opts.URLFn(input)
	if err != nil {
		return nil, fmt.Errorf("stage %q: resolve url: %w", stageID, err)
	}

	derived := input.With(FieldURL, pageURL)
	if key != "" {
		derived[FieldCacheKey] = key
	}

	body, err := e.fetcher.Fetch(ctx, pageURL, key, htmlCache, force, opts.Retries)
	if err != nil {
		var fetchErr *fetch.Error
		if errors.As(err, &fetchErr) && fetchErr.Kind == fetch.KindDefinitive {
			return opts.ErrorHandler(pageURL, fetchErr)
		}
		return nil, fmt.Errorf("stage %q: %w", stageID, err)
	}

	doc, err := opts.ParseFn(body, derived)
	if err != nil {
		return nil, fmt.Errorf("stage %q: parse: %w", stageID, err)
	}

	result, err := stageProcess(opts, stage, doc, derived)
	if err != nil {
		return nil, fmt.Errorf("stage %q: process: %w", stageID, err)
	}

	children, err := e.normalize(result, pageURL, stageID)
	if err != nil {
		return nil, err
	}

	// The write call always occurs when a key is configured; its effect
	// depends solely on the backend.
	if key != "" {
		processedCache.SaveValue(ctx, key, toRecords(children))
	}

	return children, nil
}

// deriveCacheKey computes the stage's cache key from the input context,
// before URL resolution. An empty key means the invocation is never
// persisted to the processed cache.
func deriveCacheKey(opts Options, input Context) (string, error) {
	if opts.CacheKeyFn != nil {
		key, err := opts.CacheKeyFn(input)
		if err != nil {
			return "", fmt.Errorf("cache key: %w", err)
		}
		return key, nil
	}

	if opts.CacheTemplate != "" {
		key, err := FormatKey(opts.CacheTemplate, input)
		if err != nil {
			return "", fmt.Errorf("cache key: %w", err)
		}
		return key, nil
	}

	return "", nil
}

// stageProcess invokes the stage transform, falling back to the merged
// ProcessFn option for stages declared purely through options.
func stageProcess(opts Options, stage *Stage, doc any, derived Context) (any, error) {
	if stage.Process != nil {
		return stage.Process(doc, derived)
	}
	if opts.ProcessFn != nil {
		return opts.ProcessFn(doc, derived)
	}
	return nil, errors.New("no process function configured")
}

// normalize turns a stage transform's result into a clean child context
// sequence: a single mapping is wrapped, contexts naming a stage without
// a url are dropped with a warning, and every child url is resolved
// against the stage's own fetch URL.
func (e *Engine) normalize(result any, baseURL, stageID string) ([]Context, error) {
	var contexts []Context

	switch v := result.(type) {
	case nil:
		return nil, nil
	case Context:
		contexts = []Context{v}
	case map[string]any:
		contexts = []Context{Context(v)}
	case []Context:
		contexts = v
	case []map[string]any:
		contexts = make([]Context, len(v))
		for i, m := range v {
			contexts[i] = Context(m)
		}
	default:
		return nil, fmt.Errorf("stage %q returned unsupported result type %T", stageID, result)
	}

	out := make([]Context, 0, len(contexts))
	for _, c := range contexts {
		childURL := c.URL()

		if childURL == "" {
			if c.Processor() != "" {
				e.log.Warn("dropping malformed stage output: names a stage but has no url",
					"stage", stageID,
					"next_stage", c.Processor(),
				)
				continue
			}
			out = append(out, c)
			continue
		}

		resolved, err := ResolveURL(baseURL, childURL)
		if err != nil {
			e.log.Warn("dropping stage output with unresolvable url",
				"stage", stageID,
				"url", childURL,
				"error", err.Error(),
			)
			continue
		}
		out = append(out, c.With(FieldURL, resolved))
	}

	return out, nil
}
