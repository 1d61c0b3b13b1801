// Package config assembles Tripwise runtime settings.
//
// Values are layered, later layers winning: built-in defaults, the
// optional TOML file (tripwise.toml), then environment variables, which
// may come from a .env file. Command-line flags are applied by the CLI
// on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
)

// Config holds every runtime setting.
type Config struct {
	OllamaHost string

	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbedRatePerSec     float64

	LLMModel          string
	LLMAttemptTimeout time.Duration
	LLMMaxTokens      int
	LLMTemperature    float64

	DataDir   string
	PromptDir string

	RetrievalTopK int
	ContextChars  int

	RetryAttempts  int
	RetryBaseDelay time.Duration

	PollInterval time.Duration
	DedupWindow  time.Duration

	MaxUploadBytes int64
	ChunkSize      int
	ChunkOverlap   int
	ChunkMinChars  int

	LogLevel  string
	LogFormat string

	HTTPAddr string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		OllamaHost:        "http://localhost:11434",
		EmbeddingProvider: "ollama",
		EmbeddingModel:    "nomic-embed-text",
		EmbedRatePerSec:   8,
		LLMModel:          "llama3.2",
		LLMAttemptTimeout: 120 * time.Second,
		LLMTemperature:    0.7,
		DataDir:           "data",
		RetrievalTopK:     5,
		ContextChars:      6000,
		RetryAttempts:     3,
		RetryBaseDelay:    2 * time.Second,
		PollInterval:      5 * time.Second,
		DedupWindow:       2 * time.Minute,
		MaxUploadBytes:    20 << 20,
		ChunkSize:         1000,
		ChunkOverlap:      200,
		ChunkMinChars:     20,
		LogLevel:          "info",
		LogFormat:         "text",
		HTTPAddr:          ":8000",
	}
}

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads variables from path into the process environment
// without overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load layers store (may be nil) and the environment read through lookup
// (nil means os.LookupEnv) over the defaults, then validates the result.
func Load(store driven.ConfigStore, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Default()
	l := &loader{store: store, lookup: lookup}

	l.str(&cfg.OllamaHost, "ollama.host", "OLLAMA_HOST")
	l.str(&cfg.EmbeddingProvider, "embedding.provider", "EMBEDDING_PROVIDER")
	l.str(&cfg.EmbeddingModel, "embedding.model", "EMBEDDING_MODEL")
	l.integer(&cfg.EmbeddingDimensions, "embedding.dimensions", "EMBEDDING_DIMENSIONS")
	l.float(&cfg.EmbedRatePerSec, "embedding.rate_per_sec", "EMBED_RATE_PER_SEC")

	l.str(&cfg.LLMModel, "llm.model", "LLM_MODEL")
	l.duration(&cfg.LLMAttemptTimeout, "llm.attempt_timeout", "LLM_ATTEMPT_TIMEOUT")
	l.integer(&cfg.LLMMaxTokens, "llm.max_tokens", "LLM_MAX_TOKENS")
	l.float(&cfg.LLMTemperature, "llm.temperature", "LLM_TEMPERATURE")

	l.str(&cfg.DataDir, "index.dir", "INDEX_DIR")
	l.str(&cfg.PromptDir, "prompt.dir", "PROMPT_DIR")

	l.integer(&cfg.RetrievalTopK, "retrieval.top_k", "RETRIEVAL_TOP_K")
	l.integer(&cfg.ContextChars, "prompt.context_chars", "PROMPT_CONTEXT_CHARS")

	l.integer(&cfg.RetryAttempts, "retry.attempts", "RETRY_ATTEMPTS")
	l.duration(&cfg.RetryBaseDelay, "retry.base_delay", "RETRY_BASE_DELAY")

	l.duration(&cfg.PollInterval, "readiness.poll_interval", "READINESS_POLL_INTERVAL")
	l.duration(&cfg.DedupWindow, "dedup.window", "DEDUP_WINDOW")

	var maxUpload int
	if l.integer(&maxUpload, "upload.max_bytes", "MAX_UPLOAD_BYTES") {
		cfg.MaxUploadBytes = int64(maxUpload)
	}
	l.integer(&cfg.ChunkSize, "chunk.size", "CHUNK_SIZE")
	l.integer(&cfg.ChunkOverlap, "chunk.overlap", "CHUNK_OVERLAP")
	l.integer(&cfg.ChunkMinChars, "chunk.min_chars", "CHUNK_MIN_CHARS")

	l.str(&cfg.LogLevel, "log.level", "LOG_LEVEL")
	l.str(&cfg.LogFormat, "log.format", "LOG_FORMAT")
	l.str(&cfg.HTTPAddr, "http.addr", "HTTP_ADDR")

	if len(l.errs) > 0 {
		return cfg, errors.Join(l.errs...)
	}
	if cfg.PromptDir == "" {
		cfg.PromptDir = filepath.Join(cfg.DataDir, "prompts")
	}
	cfg.OllamaHost = strings.TrimRight(cfg.OllamaHost, "/")
	return cfg, cfg.Validate()
}

// Validate checks the settings are usable.
func (c Config) Validate() error {
	var errs []error
	if c.OllamaHost == "" {
		errs = append(errs, errors.New("OLLAMA_HOST must not be empty"))
	}
	if c.LLMModel == "" {
		errs = append(errs, errors.New("LLM_MODEL must not be empty"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("INDEX_DIR must not be empty"))
	}
	switch strings.ToLower(c.EmbeddingProvider) {
	case "ollama", "hashing":
	default:
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER %q is not one of ollama, hashing", c.EmbeddingProvider))
	}
	if c.EmbeddingDimensions < 0 {
		errs = append(errs, errors.New("EMBEDDING_DIMENSIONS must not be negative"))
	}
	if c.RetrievalTopK <= 0 {
		errs = append(errs, errors.New("RETRIEVAL_TOP_K must be positive"))
	}
	if c.RetryAttempts <= 0 {
		errs = append(errs, errors.New("RETRY_ATTEMPTS must be positive"))
	}
	if c.RetryBaseDelay < 0 {
		errs = append(errs, errors.New("RETRY_BASE_DELAY must not be negative"))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, errors.New("CHUNK_SIZE must be positive"))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, errors.New("CHUNK_OVERLAP must be at least 0 and below CHUNK_SIZE"))
	}
	if c.ContextChars <= 0 {
		errs = append(errs, errors.New("PROMPT_CONTEXT_CHARS must be positive"))
	}
	return errors.Join(errs...)
}

// IndexPath is the vector index file inside DataDir.
func (c Config) IndexPath(fileName string) string {
	return filepath.Join(c.DataDir, fileName)
}

// loader applies one setting at a time, collecting parse errors.
type loader struct {
	store  driven.ConfigStore
	lookup LookupFunc
	errs   []error
}

func (l *loader) env(name string) (string, bool) {
	v, ok := l.lookup(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (l *loader) fromStore(key string) bool {
	if l.store == nil {
		return false
	}
	_, ok := l.store.Get(key)
	return ok
}

func (l *loader) str(dst *string, key, name string) bool {
	set := false
	if l.fromStore(key) {
		if v := l.store.GetString(key); v != "" {
			*dst, set = v, true
		}
	}
	if v, ok := l.env(name); ok {
		*dst, set = v, true
	}
	return set
}

func (l *loader) integer(dst *int, key, name string) bool {
	set := false
	if l.fromStore(key) {
		*dst, set = l.store.GetInt(key), true
	}
	if v, ok := l.env(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			l.errs = append(l.errs, fmt.Errorf("%s: %q is not an integer", name, v))
			return set
		}
		*dst, set = n, true
	}
	return set
}

func (l *loader) float(dst *float64, key, name string) bool {
	set := false
	if l.fromStore(key) {
		*dst, set = l.store.GetFloat(key), true
	}
	if v, ok := l.env(name); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			l.errs = append(l.errs, fmt.Errorf("%s: %q is not a number", name, v))
			return set
		}
		*dst, set = f, true
	}
	return set
}

// duration accepts Go durations ("2s", "1m30s") or whole seconds.
func (l *loader) duration(dst *time.Duration, key, name string) bool {
	set := false
	if l.fromStore(key) {
		*dst, set = l.store.GetDuration(key), true
	}
	if v, ok := l.env(name); ok {
		d, err := ParseDuration(v)
		if err != nil {
			l.errs = append(l.errs, fmt.Errorf("%s: %w", name, err))
			return set
		}
		*dst, set = d, true
	}
	return set
}

// ParseDuration parses a Go duration or a whole number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a duration", s)
	}
	return d, nil
}
