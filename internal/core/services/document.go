package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/core/ports/driving"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService exposes and resets the ingested corpus.
type DocumentService struct {
	docs    driven.DocumentStore
	index   driven.VectorIndex
	onReset []func()
}

// DocumentOption configures the document service.
type DocumentOption func(*DocumentService)

// WithResetHook registers fn to run after a successful corpus reset.
func WithResetHook(fn func()) DocumentOption {
	return func(s *DocumentService) {
		if fn != nil {
			s.onReset = append(s.onReset, fn)
		}
	}
}

// NewDocumentService creates a new document service.
func NewDocumentService(docs driven.DocumentStore, index driven.VectorIndex, opts ...DocumentOption) *DocumentService {
	s := &DocumentService{docs: docs, index: index}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns a summary of every document, oldest upload first.
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentSummary, error) {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	counts, err := s.docs.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	summaries := make([]domain.DocumentSummary, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		summaries = append(summaries, domain.DocumentSummary{
			ID:         d.ID,
			Name:       d.Filename,
			Size:       d.Size,
			Format:     d.Format,
			Chunks:     counts[d.ID],
			UploadedAt: d.UploadedAt,
		})
	}
	return summaries, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}
	return s.docs.GetDocument(ctx, documentID)
}

// Stats reports corpus and index sizes.
func (s *DocumentService) Stats(ctx context.Context) (driving.CorpusStats, error) {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return driving.CorpusStats{}, fmt.Errorf("list documents: %w", err)
	}
	counts, err := s.docs.CountChunks(ctx)
	if err != nil {
		return driving.CorpusStats{}, fmt.Errorf("count chunks: %w", err)
	}

	stats := driving.CorpusStats{Documents: len(docs), Vectors: s.index.Len()}
	for _, n := range counts {
		stats.Chunks += n
	}
	return stats, nil
}

// Reset removes every document, chunk and vector. It is the only
// operation that shrinks the index.
func (s *DocumentService) Reset(ctx context.Context) error {
	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	if err := s.docs.Reset(ctx); err != nil {
		return fmt.Errorf("reset documents: %w", err)
	}
	for _, fn := range s.onReset {
		fn()
	}
	logger.Info("corpus reset")
	return nil
}
