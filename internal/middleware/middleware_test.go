package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent_gateway/internal/auth"
	"agent_gateway/internal/config"
	"agent_gateway/internal/logging"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecret: []byte("middleware-test-secret")}
}

func token(t *testing.T, cfg *config.Config, roles ...auth.Role) string {
	t.Helper()
	tok, _, err := auth.GenerateAdminJWT("tester", roles, time.Hour, cfg)
	require.NoError(t, err)
	return tok
}

func TestAdminJWTMiddleware(t *testing.T) {
	cfg := testConfig()

	var seenSubject string
	handler := AdminJWTMiddleware(cfg, auth.RoleViewer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetAdminClaims(r.Context())
		require.True(t, ok)
		seenSubject, _ = GetAdminID(r.Context())
		assert.Equal(t, seenSubject, claims.Subject)
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"viewer allowed", "Bearer " + token(t, cfg, auth.RoleViewer), http.StatusNoContent},
		{"admin allowed", "Bearer " + token(t, cfg, auth.RoleAdmin), http.StatusNoContent},
		{"bare token accepted", token(t, cfg, auth.RoleViewer), http.StatusNoContent},
		{"integration forbidden", "Bearer " + token(t, cfg, auth.RoleIntegration), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/agents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
	assert.Equal(t, "tester", seenSubject)
}

func TestAdminJWTMiddleware_NoRolesRequired(t *testing.T) {
	cfg := testConfig()
	handler := AdminJWTMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, cfg, auth.RoleIntegration))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type recordedRequest struct {
	method, route string
	status        int
}

type fakeMetrics struct {
	requests []recordedRequest
}

func (f *fakeMetrics) RecordResolution(string)                          {}
func (f *fakeMetrics) RecordUsage(string, string, int64, int64, bool)   {}
func (f *fakeMetrics) RecordProviderCall(string, string, time.Duration) {}
func (f *fakeMetrics) RecordReply(string)                               {}
func (f *fakeMetrics) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	f.requests = append(f.requests, recordedRequest{method, route, status})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "debug")
	m := &fakeMetrics{}

	r := chi.NewRouter()
	r.Use(RequestLogger(logger, m))
	r.Get("/api/agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"agent not found"}`))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/agents/123", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Len(t, m.requests, 1)
	assert.Equal(t, recordedRequest{"GET", "/api/agents/{id}", 404}, m.requests[0])

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"path":"/api/agents/123"`)
	assert.Contains(t, out, `"route":"/api/agents/{id}"`)
	assert.Contains(t, out, `"status":404`)
}

func TestRequestLogger_Unmatched(t *testing.T) {
	m := &fakeMetrics{}
	handler := RequestLogger(logging.Nop(), m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))
	require.Len(t, m.requests, 1)
	assert.Equal(t, "unmatched", m.requests[0].route)
	assert.Equal(t, 200, m.requests[0].status)
}
