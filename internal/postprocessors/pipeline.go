// Package postprocessors turns normalised documents into retrievable chunks.
package postprocessors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs its stages in order; the first stage receives no chunks
// and creates them from the document.
//
// After the last stage every chunk is checked: it must belong to the
// document and carry text. Chunks without a DocumentID or TokenCount get
// one, and positions are renumbered from zero.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline creates a pipeline running stages in order.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Process chunks doc.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		chunks, err = stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", stage.Name(), err)
		}
		logger.Debug("%s: %s produced %d chunks", doc.Filename, stage.Name(), len(chunks))
	}

	return finalise(doc, chunks)
}

// Names returns stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, stage := range p.stages {
		names[i] = stage.Name()
	}
	return names
}

func finalise(doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		c := &chunks[i]
		switch c.DocumentID {
		case "":
			c.DocumentID = doc.ID
		case doc.ID:
		default:
			return nil, fmt.Errorf("chunk %d belongs to document %q, not %q", i, c.DocumentID, doc.ID)
		}
		if c.ID == "" {
			return nil, fmt.Errorf("chunk %d has no id", i)
		}
		if strings.TrimSpace(c.Content) == "" {
			return nil, fmt.Errorf("chunk %d is empty", i)
		}
		if c.TokenCount == 0 {
			c.TokenCount = domain.EstimateTokens(c.Content)
		}
		c.Position = i
	}
	return chunks, nil
}
