package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tripwise/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tripwise/internal/adapters/driven/storage/memory"
)

func envMap(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.OllamaHost)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, "llama3.2", cfg.LLMModel)
	assert.Equal(t, 5, cfg.RetrievalTopK)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, 120*time.Second, cfg.LLMAttemptTimeout)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.DedupWindow)
	assert.Equal(t, 6000, cfg.ContextChars)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	assert.Equal(t, filepath.Join("data", "prompts"), cfg.PromptDir)
	assert.Equal(t, filepath.Join("data", "vectors.db"), cfg.IndexPath("vectors.db"))
}

func TestLoad_EnvOverridesStore(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"llm.model":        "mistral",
		"retrieval.top_k":  int64(8),
		"retry.base_delay": "500ms",
		"embedding.model":  "all-minilm",
	})
	env := envMap(map[string]string{
		"LLM_MODEL":        "llama3.1",
		"OLLAMA_HOST":      "http://ollama:11434/",
		"RETRY_ATTEMPTS":   "5",
		"DEDUP_WINDOW":     "30",
		"MAX_UPLOAD_BYTES": "1024",
		"INDEX_DIR":        "/var/lib/tripwise",
		"EMBEDDING_MODEL":  "  ",
	})

	cfg, err := Load(store, env)
	require.NoError(t, err)

	assert.Equal(t, "llama3.1", cfg.LLMModel)
	assert.Equal(t, "http://ollama:11434", cfg.OllamaHost)
	assert.Equal(t, 8, cfg.RetrievalTopK)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, 30*time.Second, cfg.DedupWindow)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, "all-minilm", cfg.EmbeddingModel, "blank env values are ignored")
	assert.Equal(t, filepath.Join("/var/lib/tripwise", "prompts"), cfg.PromptDir)
}

func TestLoad_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tripwise.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[embedding]
provider = "hashing"
dimensions = 256

[retry]
attempts = 4
base_delay = "1s"

[chunk]
size = 500
overlap = 50
`), 0o600))

	store, err := file.NewConfigStore(path)
	require.NoError(t, err)

	cfg, err := Load(store, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "hashing", cfg.EmbeddingProvider)
	assert.Equal(t, 256, cfg.EmbeddingDimensions)
	assert.Equal(t, 4, cfg.RetryAttempts)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
}

func TestLoad_InvalidEnv(t *testing.T) {
	_, err := Load(nil, envMap(map[string]string{
		"RETRIEVAL_TOP_K":    "five",
		"RETRY_BASE_DELAY":   "soon",
		"EMBED_RATE_PER_SEC": "fast",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRIEVAL_TOP_K")
	assert.Contains(t, err.Error(), "RETRY_BASE_DELAY")
	assert.Contains(t, err.Error(), "EMBED_RATE_PER_SEC")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown provider", func(c *Config) { c.EmbeddingProvider = "openai" }, "EMBEDDING_PROVIDER"},
		{"zero top k", func(c *Config) { c.RetrievalTopK = 0 }, "RETRIEVAL_TOP_K"},
		{"zero attempts", func(c *Config) { c.RetryAttempts = 0 }, "RETRY_ATTEMPTS"},
		{"overlap too large", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, "CHUNK_OVERLAP"},
		{"empty model", func(c *Config) { c.LLMModel = "" }, "LLM_MODEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TRIPWISE_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("TRIPWISE_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("TRIPWISE_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("TRIPWISE_TEST_DOTENV"))
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("90")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = ParseDuration("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = ParseDuration("later")
	assert.Error(t, err)
}
