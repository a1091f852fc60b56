// Package fetch wraps the page transport with a cache-aside read path
// and a bounded retry loop that differentiates transient from definitive
// failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/jonesrussell/goscrape/internal/cache"
	"github.com/jonesrussell/goscrape/internal/logger"
	"github.com/jonesrussell/goscrape/internal/metrics"
)

// DefaultRetries is the number of attempts made before a transient
// failure becomes fatal.
const DefaultRetries = 3

// defaultRetryDelay is the pause between transient retry attempts.
const defaultRetryDelay = 500 * time.Millisecond

// Config configures a Fetcher.
type Config struct {
	// Transport performs the actual page fetches.
	Transport Transport
	// Logger receives retry and cache activity. Defaults to a no-op.
	Logger logger.Interface
	// RetryDelay is the pause between transient retry attempts.
	RetryDelay time.Duration
	// MaxInflight bounds concurrent transport calls. Zero means
	// unbounded.
	MaxInflight int64
	// Stats receives fetch and cache counters. Optional.
	Stats *metrics.Stats
}

// Fetcher retrieves page bodies with cache-aside reads, bounded retries
// and at-most-one-in-flight deduplication per cache key.
type Fetcher struct {
	transport  Transport
	log        logger.Interface
	retryDelay time.Duration
	group      singleflight.Group
	sem        *semaphore.Weighted
	stats      *metrics.Stats
}

// New creates a Fetcher from the given configuration.
func New(cfg Config) *Fetcher {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOp()
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	f := &Fetcher{
		transport:  cfg.Transport,
		log:        cfg.Logger.WithComponent("fetcher"),
		retryDelay: cfg.RetryDelay,
		stats:      cfg.Stats,
	}
	if cfg.MaxInflight > 0 {
		f.sem = semaphore.NewWeighted(cfg.MaxInflight)
	}
	return f
}

// Fetch returns the body for url.
//
// When key is non-empty and force is false, a cached raw body is
// returned without touching the network or the retry budget. Otherwise
// the transport is attempted up to retries times: transient failures are
// logged and retried, a definitive failure is returned immediately for
// the caller's error routing, and the first successful body is written
// through to the backend (when key is set) before being returned.
// Exhausting all attempts on transient failures is fatal.
//
// Concurrent calls for the same key share one transport call.
func (f *Fetcher) Fetch(
	ctx context.Context,
	url, key string,
	backend cache.Backend,
	force bool,
	retries int,
) (string, error) {
	if retries <= 0 {
		retries = DefaultRetries
	}

	flightKey := key
	if flightKey == "" {
		flightKey = url
	}

	body, err, _ := f.group.Do(flightKey, func() (any, error) {
		return f.fetchOnce(ctx, url, key, backend, force, retries)
	})
	if err != nil {
		return "", err
	}

	return body.(string), nil
}

// fetchOnce runs the cache-aside lookup and the retry loop for a single
// deduplicated fetch.
func (f *Fetcher) fetchOnce(
	ctx context.Context,
	url, key string,
	backend cache.Backend,
	force bool,
	retries int,
) (string, error) {
	if key != "" && !force {
		if cached, ok := backend.LoadRaw(ctx, key); ok {
			f.log.Debug("raw cache hit", "key", key, "url", url)
			f.stats.RawCacheHit()
			return cached, nil
		}
	}

	if f.sem != nil {
		if err := f.sem.Acquire(ctx, 1); err != nil {
			return "", &Error{Kind: KindFatal, URL: url, Err: err}
		}
		defer f.sem.Release(1)
	}

	body, err := f.retryLoop(ctx, url, retries)
	if err != nil {
		return "", err
	}
	f.stats.PageFetched()

	if key != "" {
		backend.SaveRaw(ctx, key, body)
	}

	return body, nil
}

// retryLoop attempts the transport call up to retries times. Transient
// failures continue the loop; definitive failures short-circuit it.
func (f *Fetcher) retryLoop(ctx context.Context, url string, retries int) (string, error) {
	attempt := 0

	operation := func() (string, error) {
		attempt++

		body, err := f.transport.Fetch(ctx, url)
		if err == nil {
			return body, nil
		}

		var fetchErr *Error
		if errors.As(err, &fetchErr) && fetchErr.Kind == KindDefinitive {
			return "", backoff.Permanent(err)
		}

		f.log.Warn("transient fetch failure",
			"url", url,
			"attempt", attempt,
			"max_attempts", retries,
			"error", err.Error(),
		)
		f.stats.Retry()
		return "", err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.retryDelay), uint64(retries-1)),
		ctx,
	)

	body, err := backoff.RetryWithData(operation, policy)
	if err == nil {
		return body, nil
	}

	var fetchErr *Error
	if errors.As(err, &fetchErr) && fetchErr.Kind == KindDefinitive {
		return "", fetchErr
	}

	return "", &Error{
		Kind: KindFatal,
		URL:  url,
		Err:  fmt.Errorf("retries exhausted after %d attempts: %w", retries, err),
	}
}
