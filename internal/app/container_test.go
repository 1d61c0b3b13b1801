package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tripwise/internal/config"
	"github.com/custodia-labs/tripwise/internal/core/domain"
)

const lisbonItinerary = `## Day 1: Alfama
**Morning:** Walk up to the castle.
**Afternoon:** Tram 28 through the old town.
**Evening:** Fado in a small tavern.

## Day 2: Belem
**Morning:** Pasteis de nata near the monastery.`

// newOllamaServer fakes the endpoints the container's LLM service calls.
func newOllamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": "llama3.2:latest"}},
		})
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3.2", body["model"])
		_ = json.NewEncoder(w).Encode(map[string]any{"response": lisbonItinerary, "done": true})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, host string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.OllamaHost = host
	cfg.EmbeddingProvider = "hashing"
	cfg.EmbeddingDimensions = 128
	cfg.DataDir = t.TempDir()
	cfg.PromptDir = filepath.Join(cfg.DataDir, "prompts")
	cfg.PollInterval = 10 * time.Millisecond
	cfg.ChunkSize = 200
	cfg.ChunkOverlap = 20
	cfg.ChunkMinChars = 5
	return cfg
}

func TestNew_EndToEnd(t *testing.T) {
	srv := newOllamaServer(t)
	c, err := New(testConfig(t, srv.URL))
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Close()) }()

	assert.Equal(t, 128, c.Index.Dimensions())
	ctx := context.Background()

	batch, err := c.Ingest.IngestBatch(ctx, []domain.Upload{
		{Filename: "lisbon.md", Content: []byte("# Lisbon\n\nThe castle of Sao Jorge overlooks Alfama. Lisbon trams climb steep hills.")},
		{Filename: "photo.png", Content: []byte{0x89, 'P', 'N', 'G'}},
	})
	require.NoError(t, err)
	require.Len(t, batch.Ingested, 1)
	require.Len(t, batch.Skipped, 1)
	assert.Equal(t, "unsupported file format", batch.Skipped[0].Reason)

	state, err := c.Readiness.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ReadinessReady, state)

	res, err := c.Itinerary.Generate(ctx, domain.ItineraryRequest{Destination: "Lisbon", DurationDays: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, res.Status)
	require.Len(t, res.Parsed.Days, 2)
	assert.Equal(t, "Alfama", res.Parsed.Days[0].Title)
	require.NotEmpty(t, res.Sources)
	assert.Equal(t, batch.Ingested[0].ID, res.Sources[0].DocumentID)

	_, err = os.Stat(filepath.Join(c.Config.PromptDir, "itinerary.txt"))
	assert.NoError(t, err, "default prompt is written on first use")

	require.NoError(t, c.Documents.Reset(ctx))
	stats, err := c.Documents.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
	assert.Zero(t, stats.Vectors)
}

func TestNew_IngestRefreshesRecentItineraries(t *testing.T) {
	srv := newOllamaServer(t)
	c, err := New(testConfig(t, srv.URL))
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()
	_, err = c.Readiness.Ensure(ctx)
	require.NoError(t, err)
	req := domain.ItineraryRequest{Destination: "Lisbon", DurationDays: 2}

	before, err := c.Itinerary.Generate(ctx, req)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, before.Status)
	assert.Empty(t, before.Sources)

	_, err = c.Ingest.IngestBatch(ctx, []domain.Upload{
		{Filename: "lisbon.txt", Content: []byte("Lisbon trams climb the steep hills of Alfama.")},
	})
	require.NoError(t, err)

	after, err := c.Itinerary.Generate(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, after.Sources)

	ans, err := c.Questions.Ask(ctx, domain.Question{Text: "How do I get around Lisbon?"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, ans.Status)
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, "lisbon", ans.Sources[0].Name)
}

func TestNew_ReopensPersistedCorpus(t *testing.T) {
	srv := newOllamaServer(t)
	cfg := testConfig(t, srv.URL)

	c, err := New(cfg)
	require.NoError(t, err)
	_, err = c.Ingest.IngestBatch(context.Background(), []domain.Upload{
		{Filename: "porto.txt", Content: []byte("Porto is known for port wine cellars along the Douro river.")},
	})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = New(cfg)
	require.NoError(t, err)
	defer c.Close()

	docs, err := c.Documents.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "porto.txt", docs[0].Name)
	assert.Positive(t, c.Index.Len())
}

func TestNew_InvalidProvider(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.EmbeddingProvider = "openai"

	c, err := New(cfg)
	require.Error(t, err)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tripwise.toml")
	require.NoError(t, os.WriteFile(path, []byte("[retrieval]\ntop_k = 7\n"), 0o600))
	t.Setenv("RETRIEVAL_TOP_K", "")

	cfg, err := LoadConfig(LoadOptions{
		EnvFile:    filepath.Join(dir, "missing.env"),
		ConfigFile: path,
		DataDir:    filepath.Join(dir, "corpus"),
	})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.RetrievalTopK)
	assert.Equal(t, filepath.Join(dir, "corpus"), cfg.DataDir)
	if os.Getenv("PROMPT_DIR") == "" {
		assert.Equal(t, filepath.Join(dir, "corpus", "prompts"), cfg.PromptDir)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfig(LoadOptions{
		EnvFile:    filepath.Join(dir, "missing.env"),
		ConfigFile: filepath.Join(dir, "nope.toml"),
	})
	assert.Error(t, err)
}
