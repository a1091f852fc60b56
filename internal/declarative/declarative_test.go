package declarative_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goscrape/internal/declarative"
	"github.com/jonesrussell/goscrape/internal/fetch"
	"github.com/jonesrussell/goscrape/internal/scrape"
)

type mapTransport struct {
	mu    sync.Mutex
	pages map[string]string
}

func (m *mapTransport) Fetch(_ context.Context, url string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	body, ok := m.pages[url]
	if !ok {
		return "", &fetch.Error{Kind: fetch.KindDefinitive, URL: url, Status: http.StatusNotFound}
	}
	return body, nil
}

func catalogDefinition() map[string]any {
	return map[string]any{
		"scope": "catalog",
		"seed": []map[string]any{
			{"url": "https://cat.test/", "processor": "index"},
		},
		"defaults": map[string]any{
			"retries": 2,
		},
		"stages": map[string]any{
			"index": map[string]any{
				"links": map[string]any{
					"selector":   "a.item",
					"processor":  "item",
					"text_field": "name",
				},
			},
			"item": map[string]any{
				"cache_template": "item-:name",
				"fields": map[string]any{
					"price": map[string]any{"selector": ".price"},
					"image": map[string]any{"selector": "img", "attr": "src"},
				},
			},
		},
	}
}

func TestLoad(t *testing.T) {
	p, err := declarative.Load(catalogDefinition())

	require.NoError(t, err)
	assert.Equal(t, "catalog", p.Scope)
	assert.Equal(t, "catalog", p.SeedName())
	assert.Equal(t, 2, p.Defaults.Retries)
	assert.Len(t, p.Stages, 2)
	assert.Equal(t, "a.item", p.Stages["index"].Links.Selector)
	assert.Equal(t, "item-:name", p.Stages["item"].CacheTemplate)

	seeds := p.Seeds()
	require.Len(t, seeds, 1)
	assert.Equal(t, "index", seeds[0].Processor())
}

func TestLoadRejectsEmptyPipeline(t *testing.T) {
	_, err := declarative.Load(map[string]any{"scope": "x"})
	assert.ErrorIs(t, err, declarative.ErrNoStages)
}

func TestLoadRejectsMalformedDefinition(t *testing.T) {
	_, err := declarative.Load(map[string]any{
		"stages": "not a map",
	})
	assert.Error(t, err)
}

func TestSeedNameWithoutScope(t *testing.T) {
	p, err := declarative.Load(map[string]any{
		"stages": map[string]any{
			"page": map[string]any{},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "seed", p.SeedName())
	assert.Equal(t, []scrape.Context{}, p.Seeds())
}

func TestPipelineEndToEnd(t *testing.T) {
	tr := &mapTransport{pages: map[string]string{
		"https://cat.test/": `<html><body>
			<a class="item" href="/item/1">Widget</a>
			<a class="item" href="/item/2">Gadget</a>
		</body></html>`,
		"https://cat.test/item/1": `<html><body>
			<div class="price">10</div><img src="/img/1.png">
		</body></html>`,
		"https://cat.test/item/2": `<html><body>
			<div class="price">20</div><img src="/img/2.png">
		</body></html>`,
	}}

	p, err := declarative.Load(catalogDefinition())
	require.NoError(t, err)

	reg := scrape.NewRegistry()
	require.NoError(t, p.Register(reg))

	engine := scrape.New(scrape.Config{
		Registry: reg,
		Fetcher:  fetch.New(fetch.Config{Transport: tr, RetryDelay: time.Millisecond}),
	})

	leaves, err := engine.RunNamed(context.Background(), p.SeedName(), scrape.Options{Scope: p.Scope})
	require.NoError(t, err)

	records, err := leaves.Collect()
	require.NoError(t, err)

	assert.Equal(t, []scrape.Context{
		{"name": "Widget", "price": "10", "image": "/img/1.png"},
		{"name": "Gadget", "price": "20", "image": "/img/2.png"},
	}, records)
}

func TestStageDefaultsMergeIntoStages(t *testing.T) {
	p, err := declarative.Load(map[string]any{
		"scope": "site",
		"defaults": map[string]any{
			"retries":   4,
			"updatable": true,
		},
		"stages": map[string]any{
			"page":     map[string]any{},
			"override": map[string]any{"retries": 1},
		},
	})
	require.NoError(t, err)

	reg := scrape.NewRegistry()
	require.NoError(t, p.Register(reg))

	page, err := reg.Resolve("page", "site")
	require.NoError(t, err)
	assert.Equal(t, 4, page.Options.Retries)
	assert.True(t, page.Options.Updatable)

	override, err := reg.Resolve("override", "site")
	require.NoError(t, err)
	assert.Equal(t, 1, override.Options.Retries)
}

func TestMissingFieldSelectorYieldsEmptyValue(t *testing.T) {
	tr := &mapTransport{pages: map[string]string{
		"https://x.test/": `<html><body><h1>Title</h1></body></html>`,
	}}

	p, err := declarative.Load(map[string]any{
		"seed": []map[string]any{
			{"url": "https://x.test/", "processor": "page"},
		},
		"stages": map[string]any{
			"page": map[string]any{
				"fields": map[string]any{
					"title":    map[string]any{"selector": "h1"},
					"subtitle": map[string]any{"selector": "h2"},
				},
			},
		},
	})
	require.NoError(t, err)

	reg := scrape.NewRegistry()
	require.NoError(t, p.Register(reg))

	engine := scrape.New(scrape.Config{
		Registry: reg,
		Fetcher:  fetch.New(fetch.Config{Transport: tr, RetryDelay: time.Millisecond}),
	})

	records, err := engine.Run(context.Background(), p.Seeds(), scrape.Options{}).Collect()
	require.NoError(t, err)

	assert.Equal(t, []scrape.Context{{"title": "Title", "subtitle": ""}}, records)
}
