package llm

import (
	"context"
)

// Provider defines the interface for chat completion backends.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role/content pair of a chat prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the provider-neutral chat completion request.
type CompletionRequest struct {
	Messages         []Message
	Stop             []string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// withDefaults fills the fields every backend expects to be set.
func (r CompletionRequest) withDefaults() CompletionRequest {
	if r.MaxTokens <= 0 {
		r.MaxTokens = 100
	}
	if r.TopP <= 0 {
		r.TopP = 1
	}
	return r
}

// CompletionResponse contains the model's answer.
type CompletionResponse struct {
	Content      string
	FinishReason string
}
