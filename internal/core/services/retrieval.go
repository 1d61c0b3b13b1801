package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/core/ports/driving"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// DefaultTopK is the number of chunks retrieved per request.
const DefaultTopK = 5

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService finds the chunks most relevant to an itinerary request.
type RetrievalService struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	docs     driven.DocumentStore
	topK     int
}

// NewRetrievalService creates a retrieval service returning up to topK
// chunks. A non-positive topK means DefaultTopK.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	docs driven.DocumentStore,
	topK int,
) *RetrievalService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrievalService{embedder: embedder, index: index, docs: docs, topK: topK}
}

// TopK returns the configured result count.
func (s *RetrievalService) TopK() int {
	return s.topK
}

// Query returns the text embedded for req. The duration is not
// semantically searchable and is left out.
func Query(req domain.ItineraryRequest) string {
	return strings.Join(strings.Fields(req.Destination+" "+req.Preferences), " ")
}

// Retrieve returns up to topK chunks for req, nearest first.
func (s *RetrievalService) Retrieve(ctx context.Context, req domain.ItineraryRequest) ([]domain.RetrievedChunk, error) {
	return s.Search(ctx, Query(req), nil)
}

// Search returns up to topK chunks for query whose documents pass filter,
// nearest first. Hits that cannot be hydrated or fail the filter do not
// use up a slot: the index is searched again with a larger k until topK
// results are found or the index is exhausted.
func (s *RetrievalService) Search(ctx context.Context, query string, filter domain.MetadataFilter) ([]domain.RetrievedChunk, error) {
	// 1. Empty corpus means no grounding context
	size := s.index.Len()
	if size == 0 {
		logger.Debug("retrieval: index is empty")
		return []domain.RetrievedChunk{}, nil
	}
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return []domain.RetrievedChunk{}, nil
	}

	// 2. Embed the query
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	docs := make(map[string]*domain.Document)
	seen := make(map[string]bool)
	results := make([]domain.RetrievedChunk, 0, s.topK)
	fetch := s.topK
	for {
		// 3. Nearest neighbours
		hits, err := s.index.Search(ctx, vector, fetch)
		if err != nil {
			return nil, fmt.Errorf("search index: %w", err)
		}

		// 4. Hydrate chunks and documents, skipping hits already seen
		for _, hit := range hits {
			if len(results) == s.topK {
				break
			}
			if seen[hit.ChunkID] {
				continue
			}
			seen[hit.ChunkID] = true

			rc, ok, err := s.hydrate(ctx, hit, docs, filter)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			rc.Rank = len(results) + 1
			results = append(results, rc)
		}

		if len(results) == s.topK || len(hits) < fetch || fetch >= size {
			break
		}
		fetch = min(fetch*2, size)
	}

	logger.Debug("retrieval: %d results from %d hits for %q", len(results), len(seen), query)
	return results, nil
}

// hydrate loads the chunk and document behind hit. ok is false when either
// is missing or the document fails filter.
func (s *RetrievalService) hydrate(
	ctx context.Context,
	hit driven.VectorHit,
	docs map[string]*domain.Document,
	filter domain.MetadataFilter,
) (domain.RetrievedChunk, bool, error) {
	chunk, err := s.docs.GetChunk(ctx, hit.ChunkID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("retrieval: indexed chunk %s has no stored text, skipping", hit.ChunkID)
		return domain.RetrievedChunk{}, false, nil
	}
	if err != nil {
		return domain.RetrievedChunk{}, false, fmt.Errorf("load chunk %s: %w", hit.ChunkID, err)
	}

	doc, ok := docs[chunk.DocumentID]
	if !ok {
		doc, err = s.docs.GetDocument(ctx, chunk.DocumentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.RetrievedChunk{}, false, fmt.Errorf("load document %s: %w", chunk.DocumentID, err)
		}
		docs[chunk.DocumentID] = doc
	}
	if doc == nil {
		logger.Warn("retrieval: chunk %s belongs to missing document %s, skipping", chunk.ID, chunk.DocumentID)
		return domain.RetrievedChunk{}, false, nil
	}
	if !filter.Matches(doc) {
		return domain.RetrievedChunk{}, false, nil
	}

	return domain.RetrievedChunk{
		Chunk:         *chunk,
		DocumentTitle: doc.Title,
		Filename:      doc.Filename,
		Distance:      hit.Distance,
		Score:         hit.Similarity,
	}, true, nil
}
