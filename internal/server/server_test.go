package server

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyhackingspace/kurdish-dataset/internal/lifecycle/lifecycletest"
	"github.com/happyhackingspace/kurdish-dataset/internal/server/ratelimit"
)

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		env := newTestEnv(t, lifecycletest.StaticExtractor{}, withHealth(pinger{}))
		w := env.do(t, jsonRequest(t, http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		env := newTestEnv(t, lifecycletest.StaticExtractor{}, withHealth(pinger{err: errors.New("dial tcp: refused")}))
		w := env.do(t, jsonRequest(t, http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, lifecycletest.StaticExtractor{Text: "x"})
	env.createSubmission(t)

	w := env.do(t, jsonRequest(t, http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `corpus_submissions_created_total{text_type="literature"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, lifecycletest.StaticExtractor{})
	w := env.do(t, jsonRequest(t, http.MethodOptions, "/panel/submissions", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRateLimit(t *testing.T) {
	cfg := &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/auth/login", Method: "POST", Limit: 2, Window: time.Minute, Burst: 2},
		},
	}
	env := newTestEnv(t, lifecycletest.StaticExtractor{}, withRateLimit(cfg))

	login := func() *http.Request {
		return jsonRequest(t, http.MethodPost, "/auth/login", map[string]string{"email": "x@example.com", "password": "nope"})
	}
	for i := 0; i < 2; i++ {
		w := env.do(t, login())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := env.do(t, login())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	w = env.do(t, jsonRequest(t, http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, lifecycletest.StaticExtractor{})
	w := env.do(t, jsonRequest(t, http.MethodGet, "/resumes", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, jsonRequest(t, http.MethodPatch, "/submissions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestOnShutdownRunsOnce(t *testing.T) {
	env := newTestEnv(t, lifecycletest.StaticExtractor{})
	calls := 0
	env.server.OnShutdown(func() { calls++ })
	env.server.Close()
	env.server.Close()
	assert.Equal(t, 1, calls)
}
