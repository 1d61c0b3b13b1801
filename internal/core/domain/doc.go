// Package domain defines the core business entities for Tripwise.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded reference document
//   - Chunk: A bounded span of document text, the unit of retrieval
//   - ItineraryRequest: A travel query with its dedup fingerprint
//   - ItineraryResult: The outcome of a generation request
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
