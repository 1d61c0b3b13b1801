package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/core/ports/driving"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// MessageNoRelevantInformation answers questions nothing in the corpus
// matches.
const MessageNoRelevantInformation = "I couldn't find any relevant information to answer your question. Please try again!"

// Ensure QuestionService implements the interface.
var _ driving.QuestionService = (*QuestionService)(nil)

// QuestionService answers free-form questions from the retrieved corpus.
// Answers are never shared between callers or reused.
type QuestionService struct {
	gate      driving.ReadinessGate
	retrieval driving.RetrievalService
	prompts   *PromptBuilder
	llm       driven.LLMService
	retrier   *Retrier
	genOpts   driven.GenerateOptions
}

// NewQuestionService creates the service. A nil gate is treated as always
// ready.
func NewQuestionService(
	gate driving.ReadinessGate,
	retrieval driving.RetrievalService,
	prompts *PromptBuilder,
	llm driven.LLMService,
	retrier *Retrier,
	opts driven.GenerateOptions,
) *QuestionService {
	if prompts == nil {
		prompts = NewPromptBuilder(nil, DefaultContextBudget)
	}
	if retrier == nil {
		retrier = NewRetrier(DefaultRetryPolicy(), nil)
	}
	return &QuestionService{
		gate:      gate,
		retrieval: retrieval,
		prompts:   prompts,
		llm:       llm,
		retrier:   retrier,
		genOpts:   opts,
	}
}

// Ask answers q. Only invalid input is returned as an error.
func (s *QuestionService) Ask(ctx context.Context, q domain.Question) (*domain.Answer, error) {
	logger.Section("Question")
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ans := &domain.Answer{Status: domain.StatusProcessing, Question: strings.TrimSpace(q.Text)}

	// 1. Readiness, without blocking
	if s.gate != nil {
		if st := s.gate.State(); !st.Settled() {
			logger.Debug("question: model not ready (%s)", st)
			ans.Message = MessageModelNotReady
			return ans, nil
		}
	}

	// 2. Retrieve
	chunks, err := s.retrieval.Search(ctx, q.Text, q.Filter)
	if err != nil {
		logger.Error("question: retrieval failed: %v", err)
		ans.Status = domain.StatusError
		ans.Message = "Searching the documents failed: " + err.Error()
		return ans, nil
	}
	if len(chunks) == 0 {
		logger.Debug("question: no matching chunks")
		ans.Status = domain.StatusSuccess
		ans.Answer = MessageNoRelevantInformation
		ans.Sources = []domain.Source{}
		return ans, nil
	}

	// 3. Prompt
	prompt, used, err := s.prompts.BuildQuestion(q, chunks)
	if err != nil {
		return answerFailed(ans, err), nil
	}
	logger.Debug("question: prompt of %d characters with %d source chunk(s)", utf8.RuneCountInString(prompt), len(used))

	// 4. Invoke with retry
	var text string
	attempts, err := s.retrier.Do(ctx, func(ctx context.Context) error {
		out, err := s.llm.Generate(ctx, prompt, s.genOpts)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return fmt.Errorf("%w: %s", domain.ErrStillProcessing, MessageEmptyResponse)
		}
		text = out
		return nil
	})
	ans.Attempts = attempts
	if err != nil {
		return answerFailed(ans, err), nil
	}

	ans.Status = domain.StatusSuccess
	ans.Answer = strings.TrimSpace(text)
	ans.Sources = documentSources(used)
	logger.Info("answered question with %d source(s) after %d attempt(s)", len(ans.Sources), attempts)
	return ans, nil
}

func answerFailed(ans *domain.Answer, err error) *domain.Answer {
	logger.Error("answering question failed: %v", err)
	ans.Status = domain.StatusError
	ans.Message = failureMessage(err, MessageAnswerFailed)
	return ans
}

// documentSources lists each contributing document once, with the snippet
// of its best-ranked chunk.
func documentSources(chunks []domain.RetrievedChunk) []domain.Source {
	all := sources(chunks)
	out := make([]domain.Source, 0, len(all))
	seen := make(map[string]bool, len(all))
	for _, src := range all {
		if seen[src.DocumentID] {
			continue
		}
		seen[src.DocumentID] = true
		out = append(out, src)
	}
	return out
}
