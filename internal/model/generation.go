package model

import "time"

// Generation is one completed prompt → completion round trip.
type Generation struct {
	ID               int64     `json:"id"`
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
