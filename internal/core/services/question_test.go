package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/core/ports/driving"
)

func newQuestionService(llm *mockLLM, retrieval driving.RetrievalService, gate *stubGate) *QuestionService {
	if gate == nil {
		gate = &stubGate{state: domain.ReadinessReady}
	}
	return NewQuestionService(
		gate,
		retrieval,
		NewPromptBuilder(nil, DefaultContextBudget),
		llm,
		NewRetrier(DefaultRetryPolicy(), (&recordingSleeper{}).Sleep),
		driven.GenerateOptions{},
	)
}

func TestQuestionService_Ask(t *testing.T) {
	c := newCorpus(t)
	ctx := context.Background()
	_, err := c.ingest.IngestBatch(ctx, []domain.Upload{
		textUpload("paris.txt", parisGuide),
		textUpload("reykjavik.txt", reykjavikGuide),
	})
	require.NoError(t, err)

	llm := &mockLLM{replies: []llmReply{{text: "  The **Louvre** is closed on Tuesdays.\n"}}}
	s := newQuestionService(llm, c.retrieval, nil)

	ans, err := s.Ask(ctx, domain.Question{
		Text:    " When is the Louvre in Paris closed? ",
		History: []domain.ChatTurn{{Role: "user", Content: "Planning a Paris trip"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, ans.Status)
	assert.Equal(t, "When is the Louvre in Paris closed?", ans.Question)
	assert.Equal(t, "The **Louvre** is closed on Tuesdays.", ans.Answer)
	assert.Equal(t, 1, ans.Attempts)
	require.NotEmpty(t, ans.Sources)
	assert.Equal(t, "paris", ans.Sources[0].Name)

	prompt := llm.LastPrompt()
	assert.Contains(t, prompt, "Question: When is the Louvre in Paris closed?")
	assert.Contains(t, prompt, "User: Planning a Paris trip")
	assert.Contains(t, prompt, "Paris museums such as the Louvre close on Tuesdays.")
}

func TestQuestionService_SourcesOncePerDocument(t *testing.T) {
	chunks := retrieved("first", "second", "third")
	chunks[1].Chunk.DocumentID = "other"
	chunks[0].DocumentTitle, chunks[1].DocumentTitle, chunks[2].DocumentTitle = "a", "b", "a"

	llm := &mockLLM{}
	s := newQuestionService(llm, &stubRetrieval{chunks: chunks}, nil)

	ans, err := s.Ask(context.Background(), domain.Question{Text: "anything?"})
	require.NoError(t, err)
	require.Len(t, ans.Sources, 2)
	assert.Equal(t, "first", ans.Sources[0].Snippet)
	assert.Equal(t, "other", ans.Sources[1].DocumentID)
}

func TestQuestionService_PassesFilter(t *testing.T) {
	retrieval := &stubRetrieval{chunks: retrieved("Cafe Flore")}
	s := newQuestionService(&mockLLM{}, retrieval, nil)
	filter := domain.MetadataFilter{"filename": "paris.txt"}

	_, err := s.Ask(context.Background(), domain.Question{Text: "Where to eat?", Filter: filter})
	require.NoError(t, err)
	assert.Equal(t, "Where to eat?", retrieval.query)
	assert.Equal(t, filter, retrieval.filter)
}

func TestQuestionService_NoRelevantChunks(t *testing.T) {
	llm := &mockLLM{}
	s := newQuestionService(llm, newCorpus(t).retrieval, nil)

	ans, err := s.Ask(context.Background(), domain.Question{Text: "Best ramen in Tokyo?"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, ans.Status)
	assert.Equal(t, MessageNoRelevantInformation, ans.Answer)
	assert.NotNil(t, ans.Sources)
	assert.Empty(t, ans.Sources)
	assert.Equal(t, 0, llm.Calls())
}

func TestQuestionService_InvalidQuestion(t *testing.T) {
	llm := &mockLLM{}
	s := newQuestionService(llm, &stubRetrieval{}, nil)

	_, err := s.Ask(context.Background(), domain.Question{Text: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, llm.Calls())
}

func TestQuestionService_ModelNotReady(t *testing.T) {
	llm := &mockLLM{}
	retrieval := &stubRetrieval{chunks: retrieved("x")}
	s := newQuestionService(llm, retrieval, &stubGate{state: domain.ReadinessPullingModel})

	ans, err := s.Ask(context.Background(), domain.Question{Text: "Is it open?"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, ans.Status)
	assert.Equal(t, MessageModelNotReady, ans.Message)
	assert.Equal(t, 0, llm.Calls())
	assert.Empty(t, retrieval.query)
}

func TestQuestionService_RetrievalError(t *testing.T) {
	llm := &mockLLM{}
	s := newQuestionService(llm, &stubRetrieval{err: domain.ErrBackendUnreachable}, nil)

	ans, err := s.Ask(context.Background(), domain.Question{Text: "Is it open?"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, ans.Status)
	assert.Contains(t, ans.Message, "Searching the documents failed")
	assert.Equal(t, 0, llm.Calls())
}

func TestQuestionService_BackendRejected(t *testing.T) {
	llm := &mockLLM{replies: []llmReply{{err: domain.ErrBackendRejected}}}
	s := newQuestionService(llm, &stubRetrieval{chunks: retrieved("x")}, nil)

	ans, err := s.Ask(context.Background(), domain.Question{Text: "Is it open?"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, ans.Status)
	assert.Equal(t, 1, llm.Calls())
	assert.Contains(t, ans.Message, "rejected")
}

func TestQuestionService_RetriesEmptyReply(t *testing.T) {
	llm := &mockLLM{replies: []llmReply{{text: " "}, {text: "Yes."}}}
	s := newQuestionService(llm, &stubRetrieval{chunks: retrieved("x")}, nil)

	ans, err := s.Ask(context.Background(), domain.Question{Text: "Is it open?"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, ans.Status)
	assert.Equal(t, "Yes.", ans.Answer)
	assert.Equal(t, 2, ans.Attempts)
}
