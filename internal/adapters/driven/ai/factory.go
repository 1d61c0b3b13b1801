// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/tripwise/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/tripwise/internal/adapters/driven/embedding/ollama"
	ollamallm "github.com/custodia-labs/tripwise/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Provider identifies an embedding backend.
type Provider string

// Supported embedding providers.
const (
	// ProviderOllama embeds through the Ollama HTTP API.
	ProviderOllama Provider = "ollama"

	// ProviderHashing embeds offline by feature hashing.
	ProviderHashing Provider = "hashing"
)

// knownDimensions maps common Ollama embedding models to their vector size.
var knownDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,
	"bge-m3":                 1024,
}

// EmbeddingDimensions returns the vector size of a known model, ignoring
// any ":tag" suffix, or 0 if the model is unknown.
func EmbeddingDimensions(model string) int {
	name, _, _ := strings.Cut(model, ":")
	return knownDimensions[name]
}

// EmbeddingSettings selects and configures the embedding service.
type EmbeddingSettings struct {
	Provider          Provider
	BaseURL           string
	Model             string
	Dimensions        int
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// LLMSettings configures the generation backend.
type LLMSettings struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	PullTimeout time.Duration
}

// CreateEmbeddingService creates the embedding service for settings.
// An empty provider means Ollama.
func CreateEmbeddingService(settings EmbeddingSettings) (driven.EmbeddingService, error) {
	switch Provider(strings.ToLower(string(settings.Provider))) {
	case ProviderOllama, "":
		return createOllamaEmbedding(settings), nil

	case ProviderHashing:
		return hashing.NewEmbeddingService(settings.Dimensions), nil

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q, use ollama or hashing",
			domain.ErrInvalidInput, settings.Provider)
	}
}

// CreateLLMService creates the Ollama generation service. The returned
// service also implements driven.ModelManager.
func CreateLLMService(settings LLMSettings) *ollamallm.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Timeout:     settings.Timeout,
		PullTimeout: settings.PullTimeout,
	})
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions <= 0 {
		dimensions = EmbeddingDimensions(settings.Model)
	}
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Timeout:           settings.Timeout,
		Dimensions:        dimensions,
		RequestsPerSecond: settings.RequestsPerSecond,
		Burst:             settings.Burst,
	})
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, err
	}

	if err := ping(ctx, svc.Ping); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("embedding service unreachable (%w). Is Ollama running at %s?", err, settings.BaseURL)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(ctx context.Context, settings LLMSettings) (*ollamallm.LLMService, error) {
	svc := CreateLLMService(settings)

	if err := ping(ctx, svc.Ping); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("LLM service unreachable (%w). Is Ollama running at %s?", err, settings.BaseURL)
	}

	return svc, nil
}

// ping validates connectivity within pingTimeout.
func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return fn(ctx)
}
