// Package ollama provides an LLM service adapter using Ollama.
//
// Besides text generation it implements driven.ModelManager, which the
// readiness gate uses to probe the backend, list installed models and
// pull a missing one.
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

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
)

// Ensure LLMService implements the interfaces.
var (
	_ driven.LLMService   = (*LLMService)(nil)
	_ driven.ModelManager = (*LLMService)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL     = "http://localhost:11434"
	DefaultLLMModel    = "llama3.2"
	DefaultLLMTimeout  = 120 * time.Second
	DefaultPullTimeout = 30 * time.Minute
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout bounds a single generate call (default: 120s). Callers
	// usually set a tighter per-attempt deadline through the context.
	Timeout time.Duration

	// PullTimeout bounds a model pull (default: 30m).
	PullTimeout time.Duration
}

// LLMService provides LLM operations using Ollama.
type LLMService struct {
	client     *http.Client
	pullClient *http.Client
	baseURL    string
	model      string
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// tagsResponse is the Ollama /api/tags response format.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// pullRequest is the Ollama /api/pull request format.
type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// pullResponse is the final /api/pull status when stream is false.
type pullResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.PullTimeout == 0 {
		cfg.PullTimeout = DefaultPullTimeout
	}

	return &LLMService{
		client:     &http.Client{Timeout: cfg.Timeout},
		pullClient: &http.Client{Timeout: cfg.PullTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
	}
}

// Generate produces a completion for the prompt.
//
// Error mapping: transport failures wrap domain.ErrBackendUnreachable;
// 503, 202 and responses with done=false wrap domain.ErrStillProcessing;
// other 4xx wrap domain.ErrBackendRejected; other 5xx are plain errors.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	reqBody := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		Stream: false,
	}

	if opts.MaxTokens > 0 || opts.Temperature > 0 || len(opts.StopWords) > 0 {
		reqBody.Options = &options{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
			Stop:        opts.StopWords,
		}
	}

	resp, err := s.post(ctx, s.client, "/api/generate", reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusAccepted:
		return "", fmt.Errorf("%w: ollama status %d", domain.ErrStillProcessing, resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", fmt.Errorf("%w: ollama status %d: %s", domain.ErrBackendRejected, resp.StatusCode, readBody(resp.Body))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, readBody(resp.Body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !genResp.Done {
		return "", fmt.Errorf("%w: response not complete", domain.ErrStillProcessing)
	}

	return genResp.Response, nil
}

// ListModels returns the names of installed models.
func (s *LLMService) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, unreachable(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ollama returned status %d", domain.ErrBackendUnreachable, resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// PullModel downloads a model and blocks until Ollama reports the result.
func (s *LLMService) PullModel(ctx context.Context, name string) error {
	resp, err := s.post(ctx, s.pullClient, "/api/pull", pullRequest{Name: name, Stream: false})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrModelPullFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama status %d: %s", domain.ErrModelPullFailed, resp.StatusCode, readBody(resp.Body))
	}

	var pr pullResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrModelPullFailed, err)
	}
	if pr.Error != "" {
		return fmt.Errorf("%w: %s", domain.ErrModelPullFailed, pr.Error)
	}
	if pr.Status != "success" {
		return fmt.Errorf("%w: unexpected status %q", domain.ErrModelPullFailed, pr.Status)
	}
	return nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return unreachable(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama returned status %d", domain.ErrBackendUnreachable, resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	s.client.CloseIdleConnections()
	s.pullClient.CloseIdleConnections()
	return nil
}

func (s *LLMService) post(ctx context.Context, client *http.Client, path string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, unreachable(ctx, err)
	}
	return resp, nil
}

// unreachable wraps a transport error, passing context errors through so
// callers can tell cancellation from a dead backend.
func unreachable(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", domain.ErrBackendUnreachable, err)
}

func readBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "failed to read response"
	}
	return strings.TrimSpace(string(body))
}
