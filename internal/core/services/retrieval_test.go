package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

func TestQuery(t *testing.T) {
	req := domain.ItineraryRequest{Destination: "  Paris ", DurationDays: 4, Preferences: "art   museums"}
	assert.Equal(t, "Paris art museums", Query(req))

	req.Preferences = ""
	assert.Equal(t, "Paris", Query(req))
}

func TestRetrievalService_EmptyIndex(t *testing.T) {
	c := newCorpus(t)
	// The embedder must not be consulted for an empty index.
	c.retrieval.embedder = &failingEmbedder{EmbeddingService: c.embedder, err: domain.ErrBackendUnreachable}

	chunks, err := c.retrieval.Retrieve(context.Background(), domain.ItineraryRequest{Destination: "Tokyo", DurationDays: 3})
	require.NoError(t, err)
	assert.NotNil(t, chunks)
	assert.Empty(t, chunks)
}

func TestRetrievalService_RanksRelevantChunkFirst(t *testing.T) {
	c := newCorpus(t)
	ctx := context.Background()

	_, err := c.ingest.IngestBatch(ctx, []domain.Upload{
		textUpload("reykjavik.txt", reykjavikGuide),
		textUpload("paris.txt", parisGuide),
	})
	require.NoError(t, err)

	chunks, err := c.retrieval.Retrieve(ctx, domain.ItineraryRequest{Destination: "Paris", DurationDays: 2})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Contains(t, chunks[0].Chunk.Content, "The Eiffel Tower opens at 9am")
	assert.Equal(t, "paris.txt", chunks[0].Filename)
	assert.Equal(t, "paris", chunks[0].DocumentTitle)
	assert.Equal(t, 1, chunks[0].Rank)
	assert.Equal(t, 2, chunks[1].Rank)
	assert.Greater(t, chunks[0].Score, chunks[1].Score)
	assert.Less(t, chunks[0].Distance, chunks[1].Distance)
}

func TestRetrievalService_TopK(t *testing.T) {
	c := newCorpus(t)
	ctx := context.Background()
	c.retrieval = NewRetrievalService(c.embedder, c.index, c.docs, 1)
	assert.Equal(t, 1, c.retrieval.TopK())

	_, err := c.ingest.IngestBatch(ctx, []domain.Upload{
		textUpload("paris.txt", parisGuide),
		textUpload("reykjavik.txt", reykjavikGuide),
	})
	require.NoError(t, err)

	chunks, err := c.retrieval.Retrieve(ctx, domain.ItineraryRequest{Destination: "Reykjavik", DurationDays: 2})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "reykjavik.txt", chunks[0].Filename)

	assert.Equal(t, DefaultTopK, NewRetrievalService(c.embedder, c.index, c.docs, 0).TopK())
}

func TestRetrievalService_SkipsOrphanVectors(t *testing.T) {
	c := newCorpus(t)
	ctx := context.Background()

	_, err := c.ingest.IngestBatch(ctx, []domain.Upload{textUpload("paris.txt", parisGuide)})
	require.NoError(t, err)

	// A vector left behind by an interrupted ingestion.
	vec, err := c.embedder.Embed(ctx, "Paris orphan")
	require.NoError(t, err)
	_, err = c.index.Insert(ctx, "orphan-chunk", vec)
	require.NoError(t, err)

	chunks, err := c.retrieval.Retrieve(ctx, domain.ItineraryRequest{Destination: "Paris", DurationDays: 1})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "paris.txt", chunks[0].Filename)
	assert.Equal(t, 1, chunks[0].Rank)
}

func TestRetrievalService_OrphanVectorsDoNotTakeSlots(t *testing.T) {
	c := newCorpus(t)
	ctx := context.Background()
	c.retrieval = NewRetrievalService(c.embedder, c.index, c.docs, 1)

	_, err := c.ingest.IngestBatch(ctx, []domain.Upload{textUpload("paris.txt", parisGuide)})
	require.NoError(t, err)

	// Two orphans identical to the query vector outrank every stored chunk.
	vec, err := c.embedder.Embed(ctx, "Paris")
	require.NoError(t, err)
	for _, id := range []string{"orphan-1", "orphan-2"} {
		_, err = c.index.Insert(ctx, id, vec)
		require.NoError(t, err)
	}

	chunks, err := c.retrieval.Retrieve(ctx, domain.ItineraryRequest{Destination: "Paris", DurationDays: 1})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "paris.txt", chunks[0].Filename)
	assert.Equal(t, 1, chunks[0].Rank)
}

func TestRetrievalService_SearchFilter(t *testing.T) {
	c := newCorpus(t)
	ctx := context.Background()

	_, err := c.ingest.IngestBatch(ctx, []domain.Upload{
		textUpload("paris.txt", parisGuide),
		textUpload("reykjavik.txt", reykjavikGuide),
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter domain.MetadataFilter
		want   []string
	}{
		{name: "no filter", filter: nil, want: []string{"paris.txt", "reykjavik.txt"}},
		{name: "filename", filter: domain.MetadataFilter{"filename": "REYKJAVIK.txt"}, want: []string{"reykjavik.txt"}},
		{name: "any of", filter: domain.MetadataFilter{"source": []any{"paris.txt", "lisbon.txt"}}, want: []string{"paris.txt"}},
		{name: "no match", filter: domain.MetadataFilter{"title": "lisbon"}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := c.retrieval.Search(ctx, "Paris museums", tt.filter)
			require.NoError(t, err)
			require.NotNil(t, chunks)

			var got []string
			for i, ch := range chunks {
				assert.Equal(t, i+1, ch.Rank)
				got = append(got, ch.Filename)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetrievalService_SearchBlankQuery(t *testing.T) {
	c := newCorpus(t)
	ctx := context.Background()

	_, err := c.ingest.IngestBatch(ctx, []domain.Upload{textUpload("paris.txt", parisGuide)})
	require.NoError(t, err)

	chunks, err := c.retrieval.Search(ctx, "  \n ", nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrievalService_EmbedError(t *testing.T) {
	c := newCorpus(t)
	ctx := context.Background()

	_, err := c.ingest.IngestBatch(ctx, []domain.Upload{textUpload("paris.txt", parisGuide)})
	require.NoError(t, err)

	c.retrieval.embedder = &failingEmbedder{EmbeddingService: c.embedder, err: domain.ErrBackendUnreachable}
	_, err = c.retrieval.Retrieve(ctx, domain.ItineraryRequest{Destination: "Paris", DurationDays: 1})
	assert.ErrorIs(t, err, domain.ErrBackendUnreachable)
}
