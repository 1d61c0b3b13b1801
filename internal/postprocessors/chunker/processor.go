// Package chunker provides a recursive character text splitter.
//
// Text is split on the first separator from a priority list that occurs
// in it (paragraphs, then lines, then sentences, then words, then single
// characters). Pieces are merged back into chunks of at most chunkSize
// characters, and each chunk starts with up to overlap characters of
// trailing context from the previous one. Lengths count runes.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultSeparators are tried in order; "" splits into characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Processor splits document content into overlapping chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator priority list. A trailing ""
// is appended when missing so any text can be split.
func WithSeparators(separators ...string) Option {
	return func(p *Processor) {
		if len(separators) == 0 {
			return
		}
		if separators[len(separators)-1] != "" {
			separators = append(separators, "")
		}
		p.separators = separators
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	texts := p.Split(doc.Content)
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Content:    text,
			Position:   i,
			TokenCount: domain.EstimateTokens(text),
			Metadata:   make(map[string]any),
		})
	}
	return chunks, nil
}

// Split returns the chunk texts for content.
func (p *Processor) Split(content string) []string {
	return p.split(content, p.separators)
}

func (p *Processor) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var (
		chunks []string
		fits   []string
	)
	for _, piece := range splitOn(text, sep) {
		if utf8.RuneCountInString(piece) <= p.chunkSize {
			fits = append(fits, piece)
			continue
		}
		if len(fits) > 0 {
			chunks = append(chunks, p.merge(fits, sep)...)
			fits = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
			continue
		}
		chunks = append(chunks, p.split(piece, rest)...)
	}
	if len(fits) > 0 {
		chunks = append(chunks, p.merge(fits, sep)...)
	}
	return chunks
}

// merge joins pieces with sep into chunks no longer than chunkSize,
// carrying up to overlap characters of trailing pieces into the next chunk.
func (p *Processor) merge(pieces []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)
	joined := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	var (
		chunks  []string
		current []string
		total   int
	)
	emit := func() {
		if text := strings.TrimSpace(strings.Join(current, sep)); text != "" {
			chunks = append(chunks, text)
		}
	}

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n+joined(len(current)) > p.chunkSize && len(current) > 0 {
			emit()
			for total > p.overlap || (total > 0 && total+n+joined(len(current)) > p.chunkSize) {
				total -= utf8.RuneCountInString(current[0]) + joined(len(current)-1)
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n + joined(len(current)-1)
	}
	emit()

	return chunks
}

// splitOn splits text on sep, dropping empty pieces. An empty sep
// splits into characters.
func splitOn(text, sep string) []string {
	parts := strings.Split(text, sep)
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
