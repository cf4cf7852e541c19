package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// NewClientFromConfig creates the provider-appropriate LLM client.
// The openai provider also covers OpenAI-compatible endpoints (vLLM,
// Ollama, Azure OpenAI) via the Endpoint field.
func NewClientFromConfig(cfg *Config, logger *zap.Logger) (LLMClient, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewClient(cfg, logger)
	case "anthropic":
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
