package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/llm-dispatch/app"
	"github.com/upb/llm-dispatch/config"
	"github.com/upb/llm-dispatch/services/dispatch"
	"github.com/upb/llm-dispatch/services/providers"
)

type stubTransport struct{}

func (stubTransport) Name() string { return "stub" }

func (stubTransport) ChatCompletion(context.Context, *providers.ChatRequest) (*providers.ChatResponse, error) {
	return &providers.ChatResponse{}, nil
}

func testDeps(t *testing.T, withDispatcher bool) *app.Dependencies {
	t.Helper()
	deps := &app.Dependencies{
		Config: &config.Config{
			Environment: "test",
			Dispatch:    config.DispatchConfig{Provider: "openai", APIKey: "sk-secret"},
		},
		Logger: zap.NewNop(),
	}
	if withDispatcher {
		client, err := dispatch.NewClient(dispatch.Config{APIKey: "sk-secret"}, stubTransport{})
		require.NoError(t, err)
		deps.Transport = stubTransport{}
		deps.Dispatcher = client
	}
	return deps
}

func TestHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	HealthCheck(testDeps(t, false))(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestReadinessCheck(t *testing.T) {
	t.Run("ready with dispatcher", func(t *testing.T) {
		w := httptest.NewRecorder()
		ReadinessCheck(testDeps(t, true))(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "ready", body["status"])
		checks := body["checks"].(map[string]interface{})
		assert.Equal(t, "configured", checks["dispatcher"])
		assert.Equal(t, "stub", checks["provider"])
	})

	t.Run("not ready without dispatcher", func(t *testing.T) {
		w := httptest.NewRecorder()
		ReadinessCheck(testDeps(t, false))(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "not_ready", decodeBody(t, w)["status"])
	})
}

func TestStatusHandler(t *testing.T) {
	w := httptest.NewRecorder()
	StatusHandler(testDeps(t, true))(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-secret")

	body := decodeBody(t, w)
	assert.Equal(t, Version, body["version"])
	assert.Equal(t, "test", body["environment"])
	assert.Equal(t, "stub", body["provider"])
	assert.Equal(t, dispatch.DefaultModel, body["default_model"])
	assert.Equal(t, dispatch.FallbackModel, body["fallback_model"])
	assert.Equal(t, float64(dispatch.DefaultMaxAttempts), body["max_attempts"])
}
