package driving

import (
	"context"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

// DocumentService exposes the ingested corpus.
type DocumentService interface {
	// List returns a summary of every ingested document.
	List(ctx context.Context) ([]domain.DocumentSummary, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// Stats reports corpus and index sizes.
	Stats(ctx context.Context) (CorpusStats, error)

	// Reset removes every document, chunk and vector.
	Reset(ctx context.Context) error
}

// CorpusStats summarises the corpus.
type CorpusStats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Vectors   int `json:"vectors"`
}
