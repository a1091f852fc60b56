// Package declarative builds pipeline stages from configuration, so a
// site's structure can be described as selectors in YAML instead of Go
// code. Each configured stage extracts fields from the page and follows
// a link selector into the next stage.
package declarative

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/PuerkitoBio/goquery"
	"github.com/mitchellh/mapstructure"

	"github.com/jonesrussell/goscrape/internal/scrape"
)

// defaultLinkAttr is the attribute read from link selector matches.
const defaultLinkAttr = "href"

// ErrNoStages means the pipeline definition declares no stages.
var ErrNoStages = errors.New("pipeline declares no stages")

// Pipeline is a config-defined scraping pipeline.
type Pipeline struct {
	// Scope qualifies the stage names registered from this pipeline.
	Scope string `mapstructure:"scope"`
	// Defaults apply to every stage unless the stage overrides them.
	Defaults StageConfig `mapstructure:"defaults"`
	// Seed is the initial context sequence.
	Seed []map[string]any `mapstructure:"seed"`
	// Stages maps stage names to their definitions.
	Stages map[string]StageConfig `mapstructure:"stages"`
}

// StageConfig defines one selector-driven stage.
type StageConfig struct {
	// CacheTemplate derives the stage's cache key (":field" tokens).
	CacheTemplate string `mapstructure:"cache_template"`
	// Updatable opts the stage in to forced refresh.
	Updatable bool `mapstructure:"updatable"`
	// Retries overrides the fetch retry bound for this stage.
	Retries int `mapstructure:"retries"`
	// Links selects the child links to follow or emit.
	Links LinkConfig `mapstructure:"links"`
	// Fields maps output field names to extraction selectors.
	Fields map[string]FieldConfig `mapstructure:"fields"`
}

// LinkConfig selects child links within a page.
type LinkConfig struct {
	// Selector matches the link elements.
	Selector string `mapstructure:"selector"`
	// Attr is the attribute holding the target URL; defaults to href.
	Attr string `mapstructure:"attr"`
	// Processor names the stage run on each followed link. Empty means
	// the links terminate as leaf records.
	Processor string `mapstructure:"processor"`
	// TextField, when set, stores each link's text under this field.
	TextField string `mapstructure:"text_field"`
}

// FieldConfig extracts one output field from a page.
type FieldConfig struct {
	// Selector matches the element to read.
	Selector string `mapstructure:"selector"`
	// Attr reads an attribute instead of the element text.
	Attr string `mapstructure:"attr"`
}

// Load decodes a pipeline definition from raw configuration data.
func Load(raw map[string]any) (*Pipeline, error) {
	var p Pipeline
	if err := mapstructure.Decode(raw, &p); err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}
	if len(p.Stages) == 0 {
		return nil, ErrNoStages
	}
	return &p, nil
}

// Register builds every configured stage and registers it, along with
// the pipeline's seed producer, under the pipeline's scope.
func (p *Pipeline) Register(reg *scrape.Registry) error {
	for name, sc := range p.Stages {
		merged := p.Defaults
		if err := mergo.Merge(&merged, sc, mergo.WithOverride); err != nil {
			return fmt.Errorf("merge defaults into stage %q: %w", name, err)
		}

		reg.RegisterStage(p.qualify(name), &scrape.Stage{
			Process: buildProcess(merged),
			Options: scrape.Options{
				CacheTemplate: merged.CacheTemplate,
				Updatable:     merged.Updatable,
				Retries:       merged.Retries,
			},
		})
	}

	reg.RegisterSeed(p.seedName(), p.Seeds)
	return nil
}

// Seeds returns the pipeline's seed contexts.
func (p *Pipeline) Seeds() []scrape.Context {
	seeds := make([]scrape.Context, len(p.Seed))
	for i, m := range p.Seed {
		seeds[i] = scrape.Context(m)
	}
	return seeds
}

// SeedName returns the identifier the pipeline's seed producer is
// registered under.
func (p *Pipeline) SeedName() string {
	return p.seedName()
}

func (p *Pipeline) seedName() string {
	if p.Scope != "" {
		return p.Scope
	}
	return "seed"
}

// qualify prefixes a stage name with the pipeline scope.
func (p *Pipeline) qualify(name string) string {
	if p.Scope == "" {
		return name
	}
	return p.Scope + "/" + name
}

// buildProcess compiles a stage definition into the transform run on
// each fetched page.
func buildProcess(sc StageConfig) scrape.ProcessFunc {
	return func(doc any, _ scrape.Context) (any, error) {
		d, err := scrape.Document(doc)
		if err != nil {
			return nil, err
		}

		fields := extractFields(d, sc.Fields)

		if sc.Links.Selector == "" {
			// No links to follow: the page itself is the record.
			return scrape.Context(fields), nil
		}

		attr := sc.Links.Attr
		if attr == "" {
			attr = defaultLinkAttr
		}

		var children []scrape.Context
		d.Find(sc.Links.Selector).Each(func(_ int, sel *goquery.Selection) {
			href, ok := sel.Attr(attr)
			if !ok {
				return
			}

			child := scrape.Context{scrape.FieldURL: href}
			for k, v := range fields {
				child[k] = v
			}
			if sc.Links.Processor != "" {
				child[scrape.FieldProcessor] = sc.Links.Processor
			}
			if sc.Links.TextField != "" {
				child[sc.Links.TextField] = sel.Text()
			}
			children = append(children, child)
		})

		return children, nil
	}
}

// extractFields reads the configured field selectors from the page.
// A selector with no match yields an empty string.
func extractFields(d *goquery.Document, fields map[string]FieldConfig) map[string]any {
	out := make(map[string]any, len(fields))
	for name, fc := range fields {
		sel := d.Find(fc.Selector).First()
		if fc.Attr != "" {
			value, _ := sel.Attr(fc.Attr)
			out[name] = value
			continue
		}
		out[name] = sel.Text()
	}
	return out
}
