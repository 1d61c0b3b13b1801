package cli

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/tripwise/internal/adapters/driven/ai"
	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driving"
)

type mockIngestService struct {
	uploads []domain.Upload
	err     error
}

func (m *mockIngestService) IngestBatch(_ context.Context, uploads []domain.Upload) (*domain.BatchResult, error) {
	m.uploads = uploads
	if m.err != nil {
		res := &domain.BatchResult{}
		for _, u := range uploads {
			res.Skipped = append(res.Skipped, domain.SkippedFile{Name: u.Filename, Reason: "unsupported file format"})
		}
		return res, m.err
	}
	res := &domain.BatchResult{}
	for _, u := range uploads {
		res.Ingested = append(res.Ingested, domain.DocumentSummary{
			ID: "doc-" + u.Filename, Name: u.Filename, Size: int64(len(u.Content)), Chunks: 1,
		})
	}
	return res, nil
}

type mockDocumentService struct {
	docs   []domain.DocumentSummary
	err    error
	resets int
}

func (m *mockDocumentService) List(context.Context) ([]domain.DocumentSummary, error) {
	return m.docs, m.err
}

func (m *mockDocumentService) Get(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Stats(context.Context) (driving.CorpusStats, error) {
	return driving.CorpusStats{Documents: len(m.docs)}, m.err
}

func (m *mockDocumentService) Reset(context.Context) error {
	m.resets++
	return m.err
}

type mockItineraryService struct {
	req    domain.ItineraryRequest
	result *domain.ItineraryResult
}

func (m *mockItineraryService) Generate(_ context.Context, req domain.ItineraryRequest) (*domain.ItineraryResult, error) {
	m.req = req
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return m.result, nil
}

type mockQuestionService struct {
	q      domain.Question
	answer *domain.Answer
}

func (m *mockQuestionService) Ask(_ context.Context, q domain.Question) (*domain.Answer, error) {
	m.q = q
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return m.answer, nil
}

type mockGate struct {
	mu      sync.Mutex
	ensures int
	state   domain.ReadinessState
	err     error
}

func (g *mockGate) Ensure(ctx context.Context) (domain.ReadinessState, error) {
	g.mu.Lock()
	g.ensures++
	g.mu.Unlock()
	if g.err != nil {
		return domain.ReadinessUnchecked, g.err
	}
	return g.state, ctx.Err()
}

func (g *mockGate) State() domain.ReadinessState { return g.state }
func (g *mockGate) Err() error                   { return nil }

func (g *mockGate) Ensures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ensures
}

type mockChecker struct {
	checks []ai.Check
}

func (m *mockChecker) ValidateAll(context.Context) ([]ai.Check, error) {
	var errs []error
	for _, c := range m.checks {
		if c.Err != nil {
			errs = append(errs, c.Err)
		}
	}
	return m.checks, errors.Join(errs...)
}

type testServices struct {
	ingest    *mockIngestService
	documents *mockDocumentService
	itinerary *mockItineraryService
	questions *mockQuestionService
	gate      *mockGate
	checker   *mockChecker
}

// setupTestServices injects fresh mocks and returns them with a cleanup
// that restores the previous services.
func setupTestServices() (*testServices, func()) {
	oldIngest, oldDocs, oldItinerary, oldGate, oldChecker := ingestService, documentService, itineraryService, readinessGate, backendChecker
	oldQuestions := questionService

	ts := &testServices{
		ingest:    &mockIngestService{},
		documents: &mockDocumentService{},
		itinerary: &mockItineraryService{},
		questions: &mockQuestionService{},
		gate:      &mockGate{state: domain.ReadinessReady},
		checker:   &mockChecker{},
	}
	SetServices(Services{
		Ingest:    ts.ingest,
		Documents: ts.documents,
		Itinerary: ts.itinerary,
		Questions: ts.questions,
		Readiness: ts.gate,
		Checker:   ts.checker,
	})

	return ts, func() {
		ingestService, documentService, itineraryService, readinessGate, backendChecker = oldIngest, oldDocs, oldItinerary, oldGate, oldChecker
		questionService = oldQuestions
	}
}

// resetFlags restores every flag to its default so commands can be
// executed repeatedly within one test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	return executeContext(context.Background(), args...)
}

func executeContext(ctx context.Context, args ...string) (string, error) {
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}
