package ai

import (
	"context"
	"errors"
)

// Check is the outcome of validating one backend.
type Check struct {
	Name   string
	Target string
	Err    error
}

// OK reports whether the backend answered.
func (c Check) OK() bool {
	return c.Err == nil
}

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct {
	embedding EmbeddingSettings
	llm       LLMSettings
}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator(embedding EmbeddingSettings, llm LLMSettings) *ConfigValidator {
	return &ConfigValidator{embedding: embedding, llm: llm}
}

// ValidateEmbedding validates the embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context) Check {
	check := Check{Name: "embedding", Target: string(v.embedding.Provider) + " " + v.embedding.Model}
	svc, err := CreateAndValidateEmbeddingService(ctx, v.embedding)
	if err != nil {
		check.Err = err
		return check
	}
	check.Err = svc.Close()
	return check
}

// ValidateLLM validates the LLM configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(ctx context.Context) Check {
	check := Check{Name: "llm", Target: "ollama " + v.llm.Model}
	svc, err := CreateAndValidateLLMService(ctx, v.llm)
	if err != nil {
		check.Err = err
		return check
	}
	check.Err = svc.Close()
	return check
}

// ValidateAll runs every check and joins the failures.
func (v *ConfigValidator) ValidateAll(ctx context.Context) ([]Check, error) {
	checks := []Check{v.ValidateEmbedding(ctx), v.ValidateLLM(ctx)}
	var errs []error
	for _, c := range checks {
		if c.Err != nil {
			errs = append(errs, c.Err)
		}
	}
	return checks, errors.Join(errs...)
}
