package llm

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewClientFromConfig_OpenAI(t *testing.T) {
	client, err := NewClientFromConfig(&Config{
		Provider: "openai",
		Endpoint: "https://api.openai.com/v1",
		Model:    "gpt-4o",
		APIKey:   "test-key",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if _, ok := client.(*Client); !ok {
		t.Errorf("expected *Client, got %T", client)
	}
	if client.GetModel() != "gpt-4o" {
		t.Errorf("unexpected model: %s", client.GetModel())
	}
}

func TestNewClientFromConfig_DefaultsToOpenAI(t *testing.T) {
	client, err := NewClientFromConfig(&Config{
		Endpoint: "http://localhost:8000/v1",
		Model:    "local-model",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if _, ok := client.(*Client); !ok {
		t.Errorf("expected *Client, got %T", client)
	}
}

func TestNewClientFromConfig_Anthropic(t *testing.T) {
	client, err := NewClientFromConfig(&Config{
		Provider: "anthropic",
		Model:    "claude-sonnet-4-5",
		APIKey:   "test-key",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if _, ok := client.(*AnthropicClient); !ok {
		t.Errorf("expected *AnthropicClient, got %T", client)
	}
}

func TestNewClientFromConfig_UnsupportedProvider(t *testing.T) {
	_, err := NewClientFromConfig(&Config{
		Provider: "cohere",
		Model:    "command",
	}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNewClient_Validation(t *testing.T) {
	logger := zap.NewNop()

	if _, err := NewClient(&Config{Model: "m"}, logger); err == nil {
		t.Error("expected error for missing endpoint")
	}
	if _, err := NewClient(&Config{Endpoint: "http://x"}, logger); err == nil {
		t.Error("expected error for missing model")
	}
	if _, err := NewAnthropicClient(&Config{Model: "m"}, logger); err == nil {
		t.Error("expected error for missing api key")
	}
}
