package ports

import "context"

type GenerateRequest struct {
	Model         string   `json:"model"`
	Prompt        string   `json:"prompt"`
	MaxTokens     int      `json:"max_tokens"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"top_p"`
	StopSequences []string `json:"stop_sequences,omitempty"`
	SystemPrompt  string   `json:"system_prompt,omitempty"`
}

type GenerateResponse struct {
	Text             string `json:"text"`
	TokensUsed       int    `json:"tokens_used"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
	ModelName        string `json:"model_name"`
	RequestID        string `json:"request_id,omitempty"`
}

// GenerationService is the remote text-generation dependency. Errors wrap
// ErrTransport, ErrService or ErrTimeout.
type GenerationService interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Health(ctx context.Context) error
}
