// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/logger"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768
	DefaultRate       = 8.0
	DefaultBurst      = 4
	DefaultBatchSize  = 16
)

// Config configures an EmbeddingService. Zero values take the defaults above.
type Config struct {
	BaseURL           string
	Model             string
	Timeout           time.Duration
	Dimensions        int
	RequestsPerSecond float64
	Burst             int

	// BatchSize caps how many texts go into one /api/embed call.
	BatchSize int
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Dimensions == 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRate
	}
	if c.Burst <= 0 {
		c.Burst = DefaultBurst
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
}

// EmbeddingService calls Ollama's /api/embed endpoint. Each request counts
// once against the limiter regardless of how many texts it carries.
type EmbeddingService struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	cfg     Config
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// NewEmbeddingService creates a service from cfg.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	cfg.applyDefaults()
	return &EmbeddingService{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
	}
}

// Embed returns the vector for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per text, in input order. Blank texts fail
// the whole batch before anything is sent.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("text %d: %w", i, domain.ErrEmptyInput)
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(texts))
		vecs, err := s.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("texts %d-%d: %w", start, end-1, err)
		}
		out = append(out, vecs...)
	}
	logger.Debug("embedded %d texts with %s", len(texts), s.cfg.Model)
	return out, nil
}

func (s *EmbeddingService) embed(ctx context.Context, input []string) ([][]float32, error) {
	for _, text := range input {
		if strings.TrimSpace(text) == "" {
			return nil, domain.ErrEmptyInput
		}
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(embedRequest{Model: s.cfg.Model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Embeddings) != len(input) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(decoded.Embeddings), len(input))
	}

	vecs := make([][]float32, len(decoded.Embeddings))
	for i, raw := range decoded.Embeddings {
		if len(raw) != s.cfg.Dimensions {
			return nil, fmt.Errorf("%w: model %s returned %d dimensions, expected %d",
				domain.ErrIndexIntegrity, s.cfg.Model, len(raw), s.cfg.Dimensions)
		}
		vec := make([]float32, len(raw))
		for j, v := range raw {
			vec[j] = float32(v)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// statusError maps a non-200 reply to an error. 4xx means Ollama rejected
// the request, usually because the model is not pulled.
func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(msg))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return fmt.Errorf("%w: ollama status %d: %s", domain.ErrBackendRejected, resp.StatusCode, detail)
	}
	return fmt.Errorf("ollama status %d: %s", resp.StatusCode, detail)
}

// Dimensions returns the configured vector size.
func (s *EmbeddingService) Dimensions() int { return s.cfg.Dimensions }

// ModelName returns the embedding model.
func (s *EmbeddingService) ModelName() string { return s.cfg.Model }

// Ping checks that the server answers /api/tags.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama returned status %d", domain.ErrBackendUnreachable, resp.StatusCode)
	}
	return nil
}

// Close drops idle connections.
func (s *EmbeddingService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
