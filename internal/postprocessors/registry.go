package postprocessors

import (
	"fmt"
	"maps"
	"slices"

	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
)

// BuilderFunc creates a PostProcessor from generic config.
// Config is a map of processor-specific settings parsed from user config.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Stage names a processor and its settings within a pipeline.
type Stage struct {
	Name   string
	Config map[string]any
}

// Registry maps processor names to their builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register adds or replaces the builder for name, which should match the
// processor's Name().
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a processor by name with the given config.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor: %s", name)
	}
	return builder(cfg)
}

// BuildPipeline builds every stage in order. An empty stage list is an error
// since a pipeline without a chunk-producing stage yields nothing to index.
func (r *Registry) BuildPipeline(stages ...Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("pipeline has no stages")
	}
	procs := make([]driven.PostProcessor, 0, len(stages))
	for _, stage := range stages {
		proc, err := r.Build(stage.Name, stage.Config)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Name, err)
		}
		procs = append(procs, proc)
	}
	return NewPipeline(procs...), nil
}

// Has returns true if a processor with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered processor names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}
