// Package llm provides clients for OpenAI-compatible and Anthropic LLM
// endpoints behind a single interface.
package llm

import (
	"context"
)

// LLMClient defines the interface for LLM chat completion operations.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider  string // "openai" or "anthropic"
	Endpoint  string // Base URL; optional for anthropic
	Model     string // Model name, e.g. "gpt-4o"
	APIKey    string
	MaxTokens int // Response cap; defaults to 2048 when zero
}

// DefaultMaxTokens is used when Config.MaxTokens is unset.
const DefaultMaxTokens = 2048
