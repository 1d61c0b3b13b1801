package domain

// RetrievedChunk is a chunk selected as grounding context.
// Rank is 1-based, nearest first.
type RetrievedChunk struct {
	Chunk         Chunk
	DocumentTitle string
	Filename      string
	Rank          int
	Distance      float64
	Score         float64
}
