package dto

import (
	"strconv"
	"time"

	"basegraph.app/inference/internal/model"
)

// GenerateRequest is the body of POST /ai/generate. Prompt is a pointer so
// binding can tell a missing or null prompt (rejected) from an empty string
// (forwarded as is).
type GenerateRequest struct {
	Prompt *string `json:"prompt" binding:"required" jsonschema:"required,description=Text to send to the language model,example=Explain gin in a few words"`
}

type GenerateResponse struct {
	Output string `json:"output" jsonschema:"required,description=Completion text returned by the provider"`
}

type GenerationResponse struct {
	ID               string    `json:"id"`
	Prompt           string    `json:"prompt"`
	Output           string    `json:"output"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	FinishReason     string    `json:"finish_reason"`
	LatencyMs        int64     `json:"latency_ms"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ToGenerationResponse renders the ID as a string; snowflake IDs exceed
// the integer range JavaScript clients can represent exactly.
func ToGenerationResponse(gen *model.Generation) GenerationResponse {
	return GenerationResponse{
		ID:               strconv.FormatInt(gen.ID, 10),
		Prompt:           gen.Prompt,
		Output:           gen.Output,
		Provider:         gen.Provider,
		Model:            gen.Model,
		FinishReason:     gen.FinishReason,
		LatencyMs:        gen.LatencyMs,
		PromptTokens:     gen.PromptTokens,
		CompletionTokens: gen.CompletionTokens,
		CreatedAt:        gen.CreatedAt,
	}
}
