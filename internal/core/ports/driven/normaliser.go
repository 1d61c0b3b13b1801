package driven

import (
	"context"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

// Normaliser extracts text from one family of document formats.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50-89, fallbacks 1-9.
	Priority() int

	// Normalise transforms a raw document into a document with Content set.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document is the normalised document with Content field populated.
	Document domain.Document
}
