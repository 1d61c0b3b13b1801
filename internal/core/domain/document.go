package domain

import "time"

// Document represents an ingested reference document.
// Documents are immutable once stored and removed only by a corpus reset.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the name the document was uploaded under.
	Filename string

	// Format is the resolved document format.
	Format Format

	// Size is the upload size in bytes.
	Size int64

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	// This is the complete document text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// UploadedAt is when the document was ingested.
	UploadedAt time.Time
}

// Chunk is a bounded span of document text, the unit of embedding and retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// TokenCount is an estimate of the chunk's model tokens.
	TokenCount int

	// Embedding is computed once at ingestion and never recomputed.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// EstimateTokens approximates the token count of text at four characters per token.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// DocumentSummary is the listing view of a document.
type DocumentSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Format     Format    `json:"format"`
	Chunks     int       `json:"chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Upload is one file of an upload batch.
type Upload struct {
	Filename string
	MIMEType string
	Content  []byte
}

// SkippedFile records a file that was not ingested and why.
type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// BatchResult is the outcome of ingesting an upload batch.
// Each file succeeds or fails independently.
type BatchResult struct {
	Ingested []DocumentSummary
	Skipped  []SkippedFile
}
