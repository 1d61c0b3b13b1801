package driving

import (
	"context"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

// ItineraryService generates grounded travel itineraries.
type ItineraryService interface {
	// Generate runs a request to a result with status success, processing
	// or error. Only invalid input is returned as an error.
	Generate(ctx context.Context, req domain.ItineraryRequest) (*domain.ItineraryResult, error)
}

// RetrievalService selects grounding context for a request.
type RetrievalService interface {
	// Retrieve returns the top-k chunks for the request in ranked order.
	// An empty index yields an empty slice and no error.
	Retrieve(ctx context.Context, req domain.ItineraryRequest) ([]domain.RetrievedChunk, error)

	// Search returns the top-k chunks for free text whose documents pass
	// filter, in ranked order.
	Search(ctx context.Context, query string, filter domain.MetadataFilter) ([]domain.RetrievedChunk, error)
}

// ReadinessGate reports whether the model backend can serve generation.
type ReadinessGate interface {
	// Ensure drives the gate until it settles or ctx ends.
	Ensure(ctx context.Context) (domain.ReadinessState, error)

	// State returns the current state without blocking.
	State() domain.ReadinessState

	// Err returns the error that moved the gate to Degraded, if any.
	Err() error
}
