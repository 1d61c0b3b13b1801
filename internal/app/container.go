// Package app wires Tripwise's adapters and services from a Config.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/tripwise/internal/adapters/driven/ai"
	"github.com/custodia-labs/tripwise/internal/adapters/driven/config/file"
	ollamallm "github.com/custodia-labs/tripwise/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/tripwise/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tripwise/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/tripwise/internal/config"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/core/services"
	"github.com/custodia-labs/tripwise/internal/logger"
	"github.com/custodia-labs/tripwise/internal/normalisers"
	"github.com/custodia-labs/tripwise/internal/normalisers/docx"
	"github.com/custodia-labs/tripwise/internal/normalisers/html"
	"github.com/custodia-labs/tripwise/internal/normalisers/markdown"
	"github.com/custodia-labs/tripwise/internal/normalisers/pdf"
	"github.com/custodia-labs/tripwise/internal/normalisers/plaintext"
	"github.com/custodia-labs/tripwise/internal/postprocessors"
)

// LoadOptions locates the configuration sources.
type LoadOptions struct {
	// EnvFile is the dotenv file (default ".env").
	EnvFile string

	// ConfigFile is the TOML file (default tripwise.toml). A missing file
	// is ignored.
	ConfigFile string

	// DataDir overrides INDEX_DIR when set.
	DataDir string
}

// LoadConfig reads the dotenv file, the TOML file and the environment.
func LoadConfig(opts LoadOptions) (config.Config, error) {
	if err := config.LoadDotEnv(opts.EnvFile); err != nil {
		return config.Config{}, err
	}

	path := opts.ConfigFile
	if path == "" {
		path = file.DefaultFileName
	}
	var store driven.ConfigStore
	if _, err := os.Stat(path); err == nil {
		fs, err := file.NewConfigStore(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("read %s: %w", path, err)
		}
		store = fs
	} else if opts.ConfigFile != "" {
		return config.Config{}, fmt.Errorf("config file %s: %w", path, err)
	}

	cfg, err := config.Load(store, nil)
	if err != nil {
		return cfg, err
	}
	if opts.DataDir != "" {
		if cfg.PromptDir == filepath.Join(cfg.DataDir, "prompts") {
			cfg.PromptDir = filepath.Join(opts.DataDir, "prompts")
		}
		cfg.DataDir = opts.DataDir
	}
	return cfg, nil
}

// Container holds the wired application.
type Container struct {
	Config config.Config

	Store    *sqlite.Store
	Index    *flat.Index
	Embedder driven.EmbeddingService
	LLM      *ollamallm.LLMService
	Prompts  *file.PromptStore

	Ingest    *services.IngestService
	Documents *services.DocumentService
	Retrieval *services.RetrievalService
	Readiness *services.ReadinessGate
	Itinerary *services.ItineraryOrchestrator
	Questions *services.QuestionService
	Validator *ai.ConfigValidator
}

// New builds every adapter and service for cfg. On error anything already
// opened is closed.
func New(cfg config.Config) (c *Container, err error) {
	if strings.EqualFold(cfg.LogLevel, "debug") {
		logger.SetVerbose(true)
	}
	logger.SetFormat(cfg.LogFormat)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	c = &Container{Config: cfg}
	defer func() {
		if err != nil {
			_ = c.Close()
			c = nil
		}
	}()

	// Storage
	c.Store, err = sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return c, fmt.Errorf("open document store: %w", err)
	}

	embedding := ai.EmbeddingSettings{
		Provider:          ai.Provider(strings.ToLower(cfg.EmbeddingProvider)),
		BaseURL:           cfg.OllamaHost,
		Model:             cfg.EmbeddingModel,
		Dimensions:        cfg.EmbeddingDimensions,
		RequestsPerSecond: cfg.EmbedRatePerSec,
	}
	c.Embedder, err = ai.CreateEmbeddingService(embedding)
	if err != nil {
		return c, err
	}

	c.Index, err = flat.Open(flat.Config{
		Path:       cfg.IndexPath(flat.DefaultFileName),
		Dimensions: c.Embedder.Dimensions(),
	})
	if err != nil {
		return c, fmt.Errorf("open vector index: %w", err)
	}

	// Generation backend
	llm := ai.LLMSettings{
		BaseURL: cfg.OllamaHost,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMAttemptTimeout,
	}
	c.LLM = ai.CreateLLMService(llm)

	c.Prompts, err = file.NewPromptStore(cfg.PromptDir, map[string]string{
		driven.PromptItinerary: services.DefaultItineraryTemplate,
		driven.PromptQuestion:  services.DefaultQuestionTemplate,
	})
	if err != nil {
		return c, fmt.Errorf("prompt store: %w", err)
	}

	// Ingestion pipeline
	registry := normalisers.NewRegistry(
		pdf.New(),
		docx.New(),
		html.New(),
		markdown.New(),
		plaintext.New(),
	)
	stages := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(stages)
	pipeline, err := stages.BuildPipeline(postprocessors.DefaultStages(cfg.ChunkSize, cfg.ChunkOverlap, cfg.ChunkMinChars)...)
	if err != nil {
		return c, fmt.Errorf("build chunk pipeline: %w", err)
	}

	// Services
	c.Retrieval = services.NewRetrievalService(c.Embedder, c.Index, c.Store, cfg.RetrievalTopK)

	models := []string{cfg.LLMModel}
	if embedding.Provider == ai.ProviderOllama {
		models = append(models, cfg.EmbeddingModel)
	}
	c.Readiness = services.NewReadinessGate(c.LLM, models, services.WithPollInterval(cfg.PollInterval))

	retrier := services.NewRetrier(services.RetryPolicy{
		Attempts:       cfg.RetryAttempts,
		BaseDelay:      cfg.RetryBaseDelay,
		Multiplier:     services.DefaultRetryMultiplier,
		AttemptTimeout: cfg.LLMAttemptTimeout,
	}, nil)
	genOpts := driven.GenerateOptions{
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	}
	prompts := services.NewPromptBuilder(c.Prompts, cfg.ContextChars)
	c.Itinerary = services.NewItineraryOrchestrator(
		c.Readiness,
		c.Retrieval,
		prompts,
		c.LLM,
		retrier,
		services.WithDedupWindow(cfg.DedupWindow),
		services.WithGenerateOptions(genOpts),
	)
	c.Questions = services.NewQuestionService(c.Readiness, c.Retrieval, prompts, c.LLM, retrier, genOpts)
	c.Ingest = services.NewIngestService(registry, pipeline, c.Embedder, c.Store, c.Index,
		services.WithMaxUploadBytes(cfg.MaxUploadBytes),
		services.WithChangeHook(c.Itinerary.Forget))
	c.Documents = services.NewDocumentService(c.Store, c.Index, services.WithResetHook(c.Itinerary.Forget))
	c.Validator = ai.NewConfigValidator(embedding, llm)

	logger.Debug("data dir %s, embedding %s/%s (%d dims), llm %s",
		cfg.DataDir, embedding.Provider, cfg.EmbeddingModel, c.Embedder.Dimensions(), cfg.LLMModel)
	return c, nil
}

// Close releases every opened resource.
func (c *Container) Close() error {
	var errs []error
	if c.LLM != nil {
		errs = append(errs, c.LLM.Close())
	}
	if c.Embedder != nil {
		errs = append(errs, c.Embedder.Close())
	}
	if c.Index != nil {
		errs = append(errs, c.Index.Close())
	}
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	return errors.Join(errs...)
}
