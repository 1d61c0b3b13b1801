package driving

import (
	"context"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

// IngestService turns uploaded files into indexed chunks.
type IngestService interface {
	// IngestBatch ingests each upload independently. A failing file is
	// reported in BatchResult.Skipped and never affects the others.
	// Returns domain.ErrNoValidFiles, alongside the result, when nothing
	// in the batch could be ingested.
	IngestBatch(ctx context.Context, uploads []domain.Upload) (*domain.BatchResult, error)
}
