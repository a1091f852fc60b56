package scrape

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Registry errors.
var (
	// ErrUnknownStage means a context named a stage identifier that was
	// never registered. This is a configuration error and aborts the
	// run at the point the context would be expanded.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrUnknownSeed means a named seed producer was never registered.
	ErrUnknownSeed = errors.New("unknown seed")
)

// Stage is a named unit of work: it fetches one resource, transforms it
// and yields child contexts. Options declared here take precedence over
// call options.
type Stage struct {
	// Process is the stage's transform.
	Process ProcessFunc
	// Options are the stage-declared options.
	Options Options
}

// SeedFunc produces a seed context sequence for a named run entry point.
type SeedFunc func() []Context

// Registry maps stage identifiers and seed names to their
// implementations. Identifiers are either qualified ("scope/name") or
// bare, resolved against a default scope at expansion time.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]*Stage
	seeds  map[string]SeedFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		stages: make(map[string]*Stage),
		seeds:  make(map[string]SeedFunc),
	}
}

// RegisterStage registers a stage under the given identifier, which may
// be qualified ("scope/name") or bare. Later registrations replace
// earlier ones.
func (r *Registry) RegisterStage(id string, stage *Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stages[id] = stage
}

// RegisterSeed registers a named seed producer.
func (r *Registry) RegisterSeed(name string, seed SeedFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seeds[name] = seed
}

// Resolve returns the stage for the given identifier. A bare identifier
// is first resolved against defaultScope, then looked up as-is.
func (r *Registry) Resolve(id, defaultScope string) (*Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if strings.Contains(id, "/") {
		if stage, ok := r.stages[id]; ok {
			return stage, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, id)
	}

	if defaultScope != "" {
		if stage, ok := r.stages[defaultScope+"/"+id]; ok {
			return stage, nil
		}
	}
	if stage, ok := r.stages[id]; ok {
		return stage, nil
	}

	return nil, fmt.Errorf("%w: %q (scope %q)", ErrUnknownStage, id, defaultScope)
}

// ResolveSeed returns the named seed producer.
func (r *Registry) ResolveSeed(name string) (SeedFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if seed, ok := r.seeds[name]; ok {
		return seed, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSeed, name)
}
