package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Prometheus) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPrometheus_Exposition(t *testing.T) {
	m := NewPrometheus()

	m.RecordResolution("assigned")
	m.RecordResolution("assigned")
	m.RecordResolution("global")
	m.RecordUsage("openai", "gpt-4o-mini", 120, 30, true)
	m.RecordUsage("groq", "mystery", 1, 1, false)
	m.RecordProviderCall("openai", "ok", 250*time.Millisecond)
	m.RecordReply("bot_disabled")
	m.RecordHTTPRequest("GET", "/api/agents", 200, 3*time.Millisecond)

	body := scrape(t, m)

	for _, want := range []string{
		`agent_gateway_resolutions_total{source="assigned"} 2`,
		`agent_gateway_resolutions_total{source="global"} 1`,
		`agent_gateway_tokens_total{direction="input",model="gpt-4o-mini",provider="openai"} 120`,
		`agent_gateway_tokens_total{direction="output",model="gpt-4o-mini",provider="openai"} 30`,
		`agent_gateway_unpriced_usage_records_total{model="mystery",provider="groq"} 1`,
		`agent_gateway_provider_calls_total{provider="openai",status="ok"} 1`,
		`agent_gateway_replies_total{outcome="bot_disabled"} 1`,
		`agent_gateway_http_requests_total{method="GET",route="/api/agents",status="200"} 1`,
		`go_goroutines`,
	} {
		assert.Contains(t, body, want)
	}
	assert.NotContains(t, body, `agent_gateway_unpriced_usage_records_total{model="gpt-4o-mini"`)
}

func TestPrometheus_IndependentRegistries(t *testing.T) {
	a := NewPrometheus()
	b := NewPrometheus()

	a.RecordReply("ok")
	assert.Contains(t, scrape(t, a), `agent_gateway_replies_total{outcome="ok"} 1`)
	assert.NotContains(t, scrape(t, b), `agent_gateway_replies_total{outcome="ok"}`)
}

func TestNoop(t *testing.T) {
	var m Metrics = Noop{}
	assert.NotPanics(t, func() {
		m.RecordResolution("x")
		m.RecordUsage("p", "m", 1, 2, false)
		m.RecordProviderCall("p", "error", time.Second)
		m.RecordReply("ok")
		m.RecordHTTPRequest("GET", "/", 500, time.Millisecond)
	})
}
