// Package filter drops chunks that carry no useful retrieval signal.
//
// Chunks shorter than a minimum number of non-space characters are
// removed, as are repeats of a chunk already seen in the same document
// (page headers and footers extracted from PDFs, for example). Surviving
// chunks are renumbered so positions stay sequential.
package filter

import (
	"context"
	"strings"
	"unicode"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

// DefaultMinChars is the default minimum non-space character count.
const DefaultMinChars = 20

// Processor filters chunks produced by an earlier stage.
type Processor struct {
	minChars int
}

// Option configures the filter.
type Option func(*Processor)

// WithMinChars sets the minimum number of non-space characters a chunk needs.
func WithMinChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.minChars = n
		}
	}
}

// New creates a filter processor.
func New(opts ...Option) *Processor {
	p := &Processor{minChars: DefaultMinChars}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "filter"
}

// MinChars returns the configured threshold.
func (p *Processor) MinChars() int {
	return p.minChars
}

// Process returns the chunks worth indexing. If every chunk would be dropped
// the longest one is kept so short documents still produce something.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	seen := make(map[string]bool, len(chunks))
	out := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		key := strings.Join(strings.Fields(c.Content), " ")
		if seen[key] || significant(c.Content) < p.minChars {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}

	if len(out) == 0 {
		best := chunks[0]
		for _, c := range chunks[1:] {
			if significant(c.Content) > significant(best.Content) {
				best = c
			}
		}
		if significant(best.Content) == 0 {
			return nil, nil
		}
		out = append(out, best)
	}

	for i := range out {
		out[i].Position = i
	}
	return out, nil
}

func significant(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
