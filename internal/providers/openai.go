package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"agent_gateway/internal/models"
)

// DefaultBaseURLs are the OpenAI-compatible endpoints of each provider.
var DefaultBaseURLs = map[models.ProviderType]string{
	models.ProviderTypeOpenAI:   "https://api.openai.com/v1",
	models.ProviderTypeGemini:   "https://generativelanguage.googleapis.com/v1beta/openai",
	models.ProviderTypeGroq:     "https://api.groq.com/openai/v1",
	models.ProviderTypeDeepSeek: "https://api.deepseek.com/v1",
}

// OpenAICompatible talks to every supported provider through its
// OpenAI-compatible chat completions endpoint.
type OpenAICompatible struct {
	baseURLs   map[models.ProviderType]string
	httpClient *http.Client
}

// NewOpenAICompatible creates a client. overrides replace DefaultBaseURLs per provider.
func NewOpenAICompatible(overrides map[models.ProviderType]string, timeout time.Duration) *OpenAICompatible {
	urls := make(map[models.ProviderType]string, len(DefaultBaseURLs))
	for p, u := range DefaultBaseURLs {
		urls[p] = u
	}
	for p, u := range overrides {
		if u != "" {
			urls[p] = strings.TrimRight(u, "/")
		}
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAICompatible{
		baseURLs:   urls,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Complete sends one non-streaming chat completion.
func (c *OpenAICompatible) Complete(ctx context.Context, req Request) (*Completion, error) {
	baseURL, ok := c.baseURLs[req.Provider]
	if !ok {
		return nil, &models.TransientProviderError{Provider: req.Provider, Err: fmt.Errorf("no endpoint for provider %q", req.Provider)}
	}
	if req.APIKey == "" {
		return nil, &models.TransientProviderError{Provider: req.Provider, Auth: true, Err: models.ErrMissingCredential}
	}

	cfg := openai.DefaultConfig(req.APIKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(cfg)

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	})
	if err != nil {
		return nil, classify(req.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &models.TransientProviderError{Provider: req.Provider, Err: errors.New("response has no choices")}
	}

	return &Completion{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}, nil
}

// classify wraps a client error, flagging 401 and 403 as auth failures.
func classify(provider models.ProviderType, err error) error {
	status := 0

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	return &models.TransientProviderError{
		Provider:   provider,
		StatusCode: status,
		Auth:       status == http.StatusUnauthorized || status == http.StatusForbidden,
		Err:        err,
	}
}
