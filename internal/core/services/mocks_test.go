package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tripwise/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/tripwise/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tripwise/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/normalisers"
	"github.com/custodia-labs/tripwise/internal/normalisers/markdown"
	"github.com/custodia-labs/tripwise/internal/normalisers/plaintext"
	"github.com/custodia-labs/tripwise/internal/postprocessors"
)

// --- LLM ---

type llmReply struct {
	text string
	err  error
}

// mockLLM returns replies in order, repeating the last one.
type mockLLM struct {
	mu      sync.Mutex
	replies []llmReply
	calls   int
	prompts []string

	// started receives once per call when non-nil.
	started chan struct{}
	// release blocks every call until closed when non-nil.
	release chan struct{}
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	reply := llmReply{text: "## Day 1: Arrival\n- Morning: walk"}
	if len(m.replies) > 0 {
		i := m.calls - 1
		if i >= len(m.replies) {
			i = len(m.replies) - 1
		}
		reply = m.replies[i]
	}
	started, release := m.started, m.release
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return reply.text, reply.err
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockLLM) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// --- Model manager ---

type mockModelManager struct {
	mu        sync.Mutex
	pingErrs  []error // consumed in order, then nil
	pings     int
	installed []string
	listErr   error
	pullErr   error
	pulled    []string

	// pullStarted and pullRelease make PullModel block when non-nil.
	pullStarted chan struct{}
	pullRelease chan struct{}
}

func (m *mockModelManager) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pings++
	if len(m.pingErrs) > 0 {
		err := m.pingErrs[0]
		m.pingErrs = m.pingErrs[1:]
		return err
	}
	return nil
}

func (m *mockModelManager) ListModels(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.installed...), nil
}

func (m *mockModelManager) PullModel(ctx context.Context, name string) error {
	m.mu.Lock()
	m.pulled = append(m.pulled, name)
	started, release := m.pullStarted, m.pullRelease
	err := m.pullErr
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *mockModelManager) Pulled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.pulled...)
}

// --- Readiness gate ---

type stubGate struct {
	state domain.ReadinessState
	err   error
}

func (g *stubGate) Ensure(_ context.Context) (domain.ReadinessState, error) { return g.state, g.err }
func (g *stubGate) State() domain.ReadinessState                             { return g.state }
func (g *stubGate) Err() error                                               { return g.err }

// --- Retrieval ---

type stubRetrieval struct {
	chunks []domain.RetrievedChunk
	err    error

	query  string
	filter domain.MetadataFilter
}

func (r *stubRetrieval) Retrieve(ctx context.Context, req domain.ItineraryRequest) ([]domain.RetrievedChunk, error) {
	return r.Search(ctx, Query(req), nil)
}

func (r *stubRetrieval) Search(_ context.Context, query string, filter domain.MetadataFilter) ([]domain.RetrievedChunk, error) {
	r.query, r.filter = query, filter
	return r.chunks, r.err
}

// --- Embedding ---

// failingEmbedder reports the backend unreachable.
type failingEmbedder struct {
	*hashing.EmbeddingService
	err error
}

func (f *failingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, f.err
}

func (f *failingEmbedder) EmbedBatch(_ context.Context, _ []string) ([][]float32, error) {
	return nil, f.err
}

// --- Sleeper ---

// recordingSleeper records requested waits without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// --- Corpus fixture ---

const testDimensions = 256

// corpus wires real in-process adapters around the services under test.
type corpus struct {
	docs      *memory.DocumentStore
	index     *flat.Index
	embedder  *hashing.EmbeddingService
	ingest    *IngestService
	retrieval *RetrievalService
	documents *DocumentService
}

func newCorpus(t *testing.T, opts ...IngestOption) *corpus {
	t.Helper()

	index, err := flat.Open(flat.Config{
		Path:       filepath.Join(t.TempDir(), flat.DefaultFileName),
		Dimensions: testDimensions,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := registry.BuildPipeline(postprocessors.DefaultStages(200, 40, 10)...)
	require.NoError(t, err)

	c := &corpus{
		docs:     memory.NewDocumentStore(),
		index:    index,
		embedder: hashing.NewEmbeddingService(testDimensions),
	}
	c.ingest = NewIngestService(
		normalisers.NewRegistry(plaintext.New(), markdown.New()),
		pipeline,
		c.embedder,
		c.docs,
		c.index,
		opts...,
	)
	c.retrieval = NewRetrievalService(c.embedder, c.index, c.docs, DefaultTopK)
	c.documents = NewDocumentService(c.docs, c.index)
	return c
}

func textUpload(name, content string) domain.Upload {
	return domain.Upload{Filename: name, MIMEType: "text/plain", Content: []byte(content)}
}
