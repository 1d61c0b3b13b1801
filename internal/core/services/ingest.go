package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/core/ports/driving"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// DefaultMaxUploadBytes is the per-file size limit.
const DefaultMaxUploadBytes int64 = 20 << 20

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService normalises, chunks, embeds and indexes uploaded files.
type IngestService struct {
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	embedder driven.EmbeddingService
	docs     driven.DocumentStore
	index    driven.VectorIndex
	maxBytes int64
	onChange []func()
}

// IngestOption configures the ingest service.
type IngestOption func(*IngestService)

// WithMaxUploadBytes sets the per-file size limit. Zero or less disables it.
func WithMaxUploadBytes(n int64) IngestOption {
	return func(s *IngestService) {
		s.maxBytes = n
	}
}

// WithChangeHook registers fn to run after a batch that ingested at least
// one file.
func WithChangeHook(fn func()) IngestOption {
	return func(s *IngestService) {
		if fn != nil {
			s.onChange = append(s.onChange, fn)
		}
	}
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	docs driven.DocumentStore,
	index driven.VectorIndex,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		registry: registry,
		pipeline: pipeline,
		embedder: embedder,
		docs:     docs,
		index:    index,
		maxBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestBatch ingests every upload independently.
func (s *IngestService) IngestBatch(ctx context.Context, uploads []domain.Upload) (*domain.BatchResult, error) {
	result := &domain.BatchResult{}
	if len(uploads) == 0 {
		return result, fmt.Errorf("%w: no files provided", domain.ErrNoValidFiles)
	}

	logger.Section("Ingest")
	for i := range uploads {
		upload := &uploads[i]
		summary, err := s.ingestOne(ctx, upload)
		if err != nil {
			name := displayName(upload.Filename)
			logger.Warn("skipping %s: %v", name, err)
			result.Skipped = append(result.Skipped, domain.SkippedFile{
				Name:   name,
				Reason: skipReason(err),
				Err:    err,
			})
			continue
		}
		logger.Info("ingested %s (%d chunks)", summary.Name, summary.Chunks)
		result.Ingested = append(result.Ingested, *summary)
	}

	if len(result.Ingested) == 0 {
		return result, fmt.Errorf("%w: %d file(s) skipped", domain.ErrNoValidFiles, len(result.Skipped))
	}
	for _, fn := range s.onChange {
		fn()
	}
	return result, nil
}

// ingestOne runs a single file through the pipeline. A failure after the
// document row is written removes it again.
func (s *IngestService) ingestOne(ctx context.Context, upload *domain.Upload) (*domain.DocumentSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. Validate the upload
	name := displayName(upload.Filename)
	if name == "" {
		return nil, fmt.Errorf("%w: missing file name", domain.ErrInvalidInput)
	}
	if s.maxBytes > 0 && int64(len(upload.Content)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit",
			domain.ErrFileTooLarge, len(upload.Content), s.maxBytes)
	}
	if len(upload.Content) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	format, err := domain.ResolveFormat(name, upload.MIMEType)
	if err != nil {
		return nil, err
	}

	// 2. Extract text
	raw := &domain.RawDocument{
		Filename: name,
		MIMEType: format.MIMEType(),
		Content:  upload.Content,
		Metadata: map[string]any{},
	}
	if upload.MIMEType != "" {
		raw.Metadata["declared_mime_type"] = upload.MIMEType
	}
	normalised, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise: %w", err)
	}
	doc := normalised.Document
	doc.Format = format
	doc.Filename = name
	doc.Size = int64(len(upload.Content))
	if strings.TrimSpace(doc.Content) == "" {
		return nil, domain.ErrEmptyDocument
	}

	// 3. Chunk
	chunks, err := s.pipeline.Process(ctx, &doc)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	logger.Debug("%s: %d characters, %d chunks", name, len(doc.Content), len(chunks))

	// 4. Embed, once per chunk
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	dims := s.index.Dimensions()
	for i := range chunks {
		if len(vectors[i]) != dims {
			return nil, fmt.Errorf("%w: embedding has %d dimensions, index expects %d",
				domain.ErrIndexIntegrity, len(vectors[i]), dims)
		}
		chunks[i].Embedding = vectors[i]
	}

	// 5. Persist the document and chunks
	if err := s.docs.SaveDocument(ctx, &doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := s.docs.SaveChunks(ctx, chunks); err != nil {
		s.discard(doc.ID)
		return nil, fmt.Errorf("save chunks: %w", err)
	}

	// 6. Index vectors
	for i := range chunks {
		if _, err := s.index.Insert(ctx, chunks[i].ID, chunks[i].Embedding); err != nil {
			s.discard(doc.ID)
			return nil, fmt.Errorf("index: %w", err)
		}
	}

	return &domain.DocumentSummary{
		ID:         doc.ID,
		Name:       name,
		Size:       doc.Size,
		Format:     format,
		Chunks:     len(chunks),
		UploadedAt: doc.UploadedAt,
	}, nil
}

// discard removes a partially ingested document. Vectors already inserted
// stay in the append-only index until the next reset; retrieval skips them
// and searches further so they do not displace stored chunks.
func (s *IngestService) discard(documentID string) {
	if err := s.docs.DeleteDocument(context.Background(), documentID); err != nil {
		logger.Warn("failed to remove partially ingested document %s: %v", documentID, err)
	}
}

func displayName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSpace(name)
}

// skipReason returns a short user-facing explanation for err.
func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return "unsupported file format"
	case errors.Is(err, domain.ErrFileTooLarge):
		return "file too large"
	case errors.Is(err, domain.ErrEmptyDocument):
		return "no extractable text"
	case errors.Is(err, domain.ErrBackendUnreachable):
		return "embedding backend unreachable"
	case errors.Is(err, domain.ErrIndexIntegrity):
		return "vector index rejected the document"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "upload cancelled"
	default:
		return err.Error()
	}
}
