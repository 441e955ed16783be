// Package llm generates grounded answers from retrieved passages.
package llm

import (
	"context"
	"fmt"

	"medrag/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate produces an answer constrained to the supplied passages
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for answer generation
type GenerateRequest struct {
	// Query is the user's question
	Query string

	// Passages are the ONLY material the model may answer from
	Passages []model.RetrievedCandidate

	// History carries previous conversation turns for follow-up questions
	History []model.Message

	// Model overrides the configured model for this call
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// GenerateResponse contains the LLM's answer
type GenerateResponse struct {
	// Answer is the generated answer text
	Answer string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Temperature for generation; low values keep answers factual
	Temperature float64

	// MaxTokens for response generation
	MaxTokens int

	// Timeout for API requests
	Timeout int // seconds

	// RequestsPerSecond throttles outbound calls; zero uses the default
	RequestsPerSecond float64
}

// NewProvider creates a provider based on configuration.
// An empty provider name returns nil without error: generation is then
// unavailable and callers surface that to the user.
func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "openai":
		return NewOpenAIProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}
