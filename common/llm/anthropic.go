package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicGenerator struct {
	client       anthropic.Client
	model        string
	systemPrompt string
	maxTokens    int64
	temperature  *float64
}

// newAnthropicGenerator creates a Generator using the Anthropic Messages API.
func newAnthropicGenerator(cfg Config) *anthropicGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5"
	}

	return &anthropicGenerator{
		client:       anthropic.NewClient(opts...),
		model:        model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    maxTokensOrDefault(cfg.MaxTokens),
		temperature:  cfg.Temperature,
	}
}

func (g *anthropicGenerator) Generate(ctx context.Context, prompt string) (*Completion, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	// Anthropic takes the system prompt separately, not in the messages array.
	if g.systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: g.systemPrompt}}
	}

	if g.temperature != nil {
		params.Temperature = anthropic.Float(*g.temperature)
	}

	start := time.Now()
	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	slog.DebugContext(ctx, "llm generation completed",
		"model", g.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason)

	var text strings.Builder
	var sawText bool
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
			sawText = true
		}
	}
	if !sawText {
		return nil, ErrEmptyCompletion
	}

	return &Completion{
		Text:             text.String(),
		FinishReason:     mapStopReason(resp.StopReason),
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func (g *anthropicGenerator) Provider() string {
	return ProviderAnthropic
}

func (g *anthropicGenerator) Model() string {
	return g.model
}

// mapStopReason normalises Anthropic stop reasons to the OpenAI vocabulary
// so history rows read the same regardless of provider.
func mapStopReason(reason anthropic.StopReason) string {
	switch reason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return "stop"
	case anthropic.StopReasonMaxTokens:
		return "length"
	case anthropic.StopReasonToolUse:
		return "tool_calls"
	default:
		return string(reason)
	}
}
