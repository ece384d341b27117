// Package providers calls AI chat-completion APIs.
package providers

import (
	"context"

	"agent_gateway/internal/models"
)

// Message roles accepted in a Request.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat completion for a resolved agent.
type Request struct {
	Provider     models.ProviderType
	Model        string
	APIKey       string
	SystemPrompt string
	Messages     []Message
}

// Completion is the first choice of a response plus token usage.
type Completion struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Completer sends chat completions. Failures are returned as
// *models.TransientProviderError; nothing is retried.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}
