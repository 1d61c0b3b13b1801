package driven

import (
	"context"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a document
// by MIME type, preferring the highest priority.
type NormaliserRegistry interface {
	// Normalise transforms a raw document using the best matching normaliser.
	// Returns domain.ErrUnsupportedFormat when no normaliser matches.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
