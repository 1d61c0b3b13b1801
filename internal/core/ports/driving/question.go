package driving

import (
	"context"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

// QuestionService answers free-form questions from the corpus.
type QuestionService interface {
	// Ask answers q with status success, processing or error. Only invalid
	// input is returned as an error.
	Ask(ctx context.Context, q domain.Question) (*domain.Answer, error)
}
