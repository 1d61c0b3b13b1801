package driven

import "context"

// LLMService generates text from a prompt.
type LLMService interface {
	// Generate produces a completion for the prompt. Implementations
	// report a backend that has not finished with domain.ErrStillProcessing
	// and a rejected request with domain.ErrBackendRejected.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation.
type GenerateOptions struct {
	// MaxTokens limits the response length. Zero means backend default.
	MaxTokens int

	// Temperature controls randomness (0.0-1.0).
	Temperature float64

	// StopWords end generation when encountered.
	StopWords []string
}

// ModelManager inspects and prepares the model backend.
type ModelManager interface {
	// Ping checks the backend answers its health endpoint.
	Ping(ctx context.Context) error

	// ListModels returns the names of installed models.
	ListModels(ctx context.Context) ([]string, error)

	// PullModel downloads a model, blocking until the backend finishes.
	PullModel(ctx context.Context, name string) error
}
