package driven

import "context"

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
// Every vector in an index has the same dimensionality.
type VectorIndex interface {
	// Insert appends a vector for the given chunk ID. It is durable before
	// returning. Re-inserting an identical (chunkID, vector) pair is a no-op
	// that reports false; the same chunkID with a different vector is an
	// integrity error.
	Insert(ctx context.Context, chunkID string, embedding []float32) (bool, error)

	// Search returns the k entries nearest to query, nearest first.
	// Ties are broken by insertion order.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Dimensions returns the configured vector size.
	Dimensions() int

	// Reset removes every entry. Used only for an explicit corpus reset.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Seq is the entry's insertion ordinal.
	Seq uint64

	// Distance is the metric distance to the query (smaller is nearer).
	Distance float64

	// Similarity is a score in [0, 1] derived from Distance.
	Similarity float64
}
