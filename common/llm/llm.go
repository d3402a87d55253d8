package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ErrEmptyCompletion is returned when the provider answers without any text
// choices or content blocks.
var ErrEmptyCompletion = errors.New("provider returned no completion")

// Config holds LLM client configuration.
type Config struct {
	Provider     string        // "openai" or "anthropic"
	APIKey       string        // Required: API key for the provider
	BaseURL      string        // Optional: custom API endpoint
	Model        string        // Model name (e.g., "gpt-4o-mini", "claude-sonnet-4-5")
	SystemPrompt string        // Optional: prepended as a system instruction
	MaxTokens    int           // 0 = client default
	Temperature  *float64      // nil = model default, explicit 0 = deterministic
	Timeout      time.Duration // per attempt; 0 = SDK default
	MaxRetries   int           // SDK-level retries on 408/409/429/5xx and connection errors
}

// Generator turns a prompt into the provider's completion text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Completion, error)
	Provider() string
	Model() string
}

// Completion is the provider's answer, returned verbatim.
type Completion struct {
	Text             string
	FinishReason     string // "stop", "length", ...
	PromptTokens     int
	CompletionTokens int
}

// New creates a Generator for cfg.Provider. Defaults to OpenAI if no
// provider is specified.
func New(cfg Config) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIGenerator(cfg), nil
	case ProviderAnthropic:
		return newAnthropicGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

func maxTokensOrDefault(n int) int64 {
	if n <= 0 {
		return 1024
	}
	return int64(n)
}
