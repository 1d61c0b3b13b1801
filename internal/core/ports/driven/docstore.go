package driven

import (
	"context"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// SaveDocument stores a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks stores chunks for a document, all or none.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document in position order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns all documents, oldest upload first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// CountChunks returns the number of chunks per document ID.
	CountChunks(ctx context.Context) (map[string]int, error)

	// Reset removes all documents and chunks.
	Reset(ctx context.Context) error
}
