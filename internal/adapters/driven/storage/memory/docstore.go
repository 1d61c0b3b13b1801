package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	order     []string
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
	byChunkID map[string]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		byChunkID: make(map[string]domain.Chunk),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; !exists {
		s.order = append(s.order, doc.ID)
	}
	s.documents[doc.ID] = *doc
	return nil
}

// SaveChunks stores chunks. Every chunk must belong to a saved document,
// otherwise nothing is stored.
func (s *DocumentStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if _, ok := s.documents[c.DocumentID]; !ok {
			return fmt.Errorf("saving chunk %s: document %s: %w", c.ID, c.DocumentID, domain.ErrNotFound)
		}
	}
	for _, c := range chunks {
		if _, exists := s.byChunkID[c.ID]; !exists {
			s.chunks[c.DocumentID] = append(s.chunks[c.DocumentID], c)
		}
		s.byChunkID[c.ID] = c
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetChunks retrieves all chunks for a document in position order.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Chunk, 0, len(s.chunks[documentID]))
	for _, c := range s.chunks[documentID] {
		out = append(out, s.byChunkID[c.ID])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *DocumentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.byChunkID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.chunks[id] {
		delete(s.byChunkID, c.ID)
	}
	delete(s.chunks, id)
	if _, ok := s.documents[id]; ok {
		delete(s.documents, id)
		for i, docID := range s.order {
			if docID == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// ListDocuments returns all documents in the order they were first saved.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.order))
	for _, id := range s.order {
		docs = append(docs, s.documents[id])
	}
	return docs, nil
}

// CountChunks returns the number of chunks per document ID.
func (s *DocumentStore) CountChunks(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.chunks))
	for id, chunks := range s.chunks {
		if len(chunks) > 0 {
			counts[id] = len(chunks)
		}
	}
	return counts, nil
}

// Reset removes all documents and chunks.
func (s *DocumentStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.documents = make(map[string]domain.Document)
	s.chunks = make(map[string][]domain.Chunk)
	s.byChunkID = make(map[string]domain.Chunk)
	return nil
}
