// Package hashing provides a deterministic offline embedding service.
//
// Text is lower-cased and split into words; each word and each pair of
// adjacent words is hashed (FNV-1a) into one of Dimensions buckets with a
// hash-derived sign. The resulting vector is L2-normalised, so cosine
// similarity reflects shared vocabulary. No model backend is needed, which
// makes it suitable for offline use and tests.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the default vector size.
const DefaultDimensions = 384

// ModelName is reported for vectors produced by this service.
const ModelName = "feature-hashing"

// EmbeddingService embeds text by feature hashing.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashing embedder. Non-positive dimensions
// select DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed returns the hashed feature vector for text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}

	vec := make([]float64, s.dimensions)
	words := tokenize(text)
	for i, w := range words {
		s.add(vec, w, 1)
		if i > 0 {
			s.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, s.dimensions)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (s *EmbeddingService) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(s.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// tokenize lower-cases text and splits it on anything that is not a letter
// or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the embedder identifier.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
