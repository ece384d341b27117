package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent_gateway/internal/models"
)

type capturedRequest struct {
	Path   string
	Auth   string
	Body   map[string]any
	Called bool
}

func newTestServer(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Called = true
		captured.Path = r.URL.Path
		captured.Auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&captured.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const okBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "llama3-8b-8192",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "Xin chào!"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49}
}`

func TestComplete_Success(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, http.StatusOK, okBody, &got)

	c := NewOpenAICompatible(map[models.ProviderType]string{models.ProviderTypeGroq: srv.URL + "/"}, time.Second)
	completion, err := c.Complete(context.Background(), Request{
		Provider:     models.ProviderTypeGroq,
		Model:        "llama3-8b-8192",
		APIKey:       "gsk-test",
		SystemPrompt: "Be polite.",
		Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "price?"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Xin chào!", completion.Text)
	assert.Equal(t, int64(42), completion.InputTokens)
	assert.Equal(t, int64(7), completion.OutputTokens)

	assert.Equal(t, "/chat/completions", got.Path)
	assert.Equal(t, "Bearer gsk-test", got.Auth)
	assert.Equal(t, "llama3-8b-8192", got.Body["model"])

	msgs, ok := got.Body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 4)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "Be polite.", first["content"])
	assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])
}

func TestComplete_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		auth   bool
	}{
		{"unauthorized", http.StatusUnauthorized, true},
		{"forbidden", http.StatusForbidden, true},
		{"rate limited", http.StatusTooManyRequests, false},
		{"server error", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got capturedRequest
			srv := newTestServer(t, tt.status, `{"error":{"message":"nope","type":"invalid_request_error"}}`, &got)

			c := NewOpenAICompatible(map[models.ProviderType]string{models.ProviderTypeOpenAI: srv.URL}, time.Second)
			_, err := c.Complete(context.Background(), Request{Provider: models.ProviderTypeOpenAI, Model: "gpt-4o", APIKey: "sk"})

			var perr *models.TransientProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, tt.auth, perr.Auth)
			assert.Equal(t, models.ProviderTypeOpenAI, perr.Provider)
		})
	}
}

func TestComplete_NoChoices(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"choices": [], "usage": {}}`, &got)

	c := NewOpenAICompatible(map[models.ProviderType]string{models.ProviderTypeDeepSeek: srv.URL}, time.Second)
	_, err := c.Complete(context.Background(), Request{Provider: models.ProviderTypeDeepSeek, Model: "deepseek-chat", APIKey: "k"})

	var perr *models.TransientProviderError
	assert.ErrorAs(t, err, &perr)
}

func TestComplete_MissingKeyOrProvider(t *testing.T) {
	c := NewOpenAICompatible(nil, 0)

	_, err := c.Complete(context.Background(), Request{Provider: models.ProviderTypeOpenAI, Model: "gpt-4o"})
	var perr *models.TransientProviderError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Auth)
	assert.ErrorIs(t, err, models.ErrMissingCredential)

	_, err = c.Complete(context.Background(), Request{Provider: "acme", Model: "x", APIKey: "k"})
	assert.ErrorAs(t, err, &perr)
}

func TestNewOpenAICompatible_DefaultURLs(t *testing.T) {
	c := NewOpenAICompatible(map[models.ProviderType]string{models.ProviderTypeGemini: ""}, 0)
	assert.Equal(t, DefaultBaseURLs[models.ProviderTypeGemini], c.baseURLs[models.ProviderTypeGemini])
	assert.Equal(t, 60*time.Second, c.httpClient.Timeout)
}
