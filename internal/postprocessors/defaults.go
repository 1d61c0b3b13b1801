package postprocessors

import (
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/postprocessors/chunker"
	"github.com/custodia-labs/tripwise/internal/postprocessors/filter"
)

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("filter", buildFilter)
}

// DefaultStages is the ingestion pipeline: split, then drop noise chunks.
func DefaultStages(chunkSize, overlap, minChars int) []Stage {
	return []Stage{
		{Name: "chunker", Config: map[string]any{"chunk_size": chunkSize, "overlap": overlap}},
		{Name: "filter", Config: map[string]any{"min_chars": minChars}},
	}
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 1000)
//   - overlap (int): Overlapping characters between chunks (default: 200)
//   - separators ([]string): Split priority list
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
		if seps := getStringsFromConfig(cfg, "separators"); len(seps) > 0 {
			opts = append(opts, chunker.WithSeparators(seps...))
		}
	}

	return chunker.New(opts...), nil
}

// buildFilter creates a chunk filter from generic config.
// Supported config keys:
//   - min_chars (int): Chunks with fewer non-space characters are dropped
func buildFilter(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []filter.Option
	if cfg != nil {
		if n := getIntFromConfig(cfg, "min_chars"); n > 0 {
			opts = append(opts, filter.WithMinChars(n))
		}
	}
	return filter.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// getStringsFromConfig extracts a string list; TOML arrays decode as []any.
func getStringsFromConfig(cfg map[string]any, key string) []string {
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}
