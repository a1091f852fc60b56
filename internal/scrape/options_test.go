package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goscrape/internal/cache"
)

func TestOverlayPrecedence(t *testing.T) {
	lower := Options{
		CacheTemplate: "low-:id",
		Retries:       3,
		Scope:         "low",
		Concurrency:   2,
	}
	higher := Options{
		CacheTemplate: "high-:id",
		Retries:       5,
		Updatable:     true,
	}

	merged := lower.overlay(higher)

	assert.Equal(t, "high-:id", merged.CacheTemplate)
	assert.Equal(t, 5, merged.Retries)
	assert.True(t, merged.Updatable)
	assert.Equal(t, "low", merged.Scope, "unset fields fall through")
	assert.Equal(t, 2, merged.Concurrency)
}

func TestOverlayZeroLayerKeepsLower(t *testing.T) {
	backend := cache.NewMemory()
	lower := Options{
		HTMLCache: backend,
		Retries:   4,
		Update:    true,
	}

	merged := lower.overlay(Options{})

	assert.Same(t, backend, merged.HTMLCache.(*cache.MemoryBackend))
	assert.Equal(t, 4, merged.Retries)
	assert.True(t, merged.Update, "booleans only toggle on")
}

func TestOverlayFunctions(t *testing.T) {
	lowCalled := false
	highCalled := false

	lower := Options{URLFn: func(Context) (string, error) {
		lowCalled = true
		return "low", nil
	}}
	higher := Options{URLFn: func(Context) (string, error) {
		highCalled = true
		return "high", nil
	}}

	merged := lower.overlay(higher)
	url, err := merged.URLFn(Context{})

	require.NoError(t, err)
	assert.Equal(t, "high", url)
	assert.True(t, highCalled)
	assert.False(t, lowCalled)
}

func TestFilterOnlyPatterns(t *testing.T) {
	opts := Options{Only: []Context{
		{"kind": "article"},
		{"kind": "video", "lang": "en"},
	}}

	contexts := []Context{
		{"kind": "article", "id": 1},
		{"kind": "video", "lang": "pl", "id": 2},
		{"kind": "video", "lang": "en", "id": 3},
		{"id": 4}, // no kind field: compatible with the first pattern
	}

	got := opts.filter(contexts)

	assert.Equal(t, []Context{
		{"kind": "article", "id": 1},
		{"kind": "video", "lang": "en", "id": 3},
		{"id": 4},
	}, got)
}

func TestFilterOnlyFnOverridesOnly(t *testing.T) {
	opts := Options{
		Only:   []Context{{"kind": "article"}},
		OnlyFn: func(c Context) bool { return c["kind"] == "video" },
	}

	got := opts.filter([]Context{
		{"kind": "article"},
		{"kind": "video"},
	})

	assert.Equal(t, []Context{{"kind": "video"}}, got)
}

func TestFilterPostprocessRunsAfterPredicate(t *testing.T) {
	opts := Options{
		Only: []Context{{"keep": true}},
		Postprocess: func(contexts []Context) []Context {
			for _, c := range contexts {
				c["seen"] = true
			}
			return contexts
		},
	}

	got := opts.filter([]Context{
		{"keep": true, "id": 1},
		{"keep": false, "id": 2},
	})

	assert.Equal(t, []Context{{"keep": true, "id": 1, "seen": true}}, got)
}

func TestBackendOrNoop(t *testing.T) {
	assert.IsType(t, &cache.NoopBackend{}, backendOrNoop(nil))

	backend := cache.NewMemory()
	assert.Same(t, backend, backendOrNoop(backend).(*cache.MemoryBackend))
}
