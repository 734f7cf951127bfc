package health

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
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func serve(t *testing.T, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestHandler_AllHealthy(t *testing.T) {
	h := NewHandler("v1.2.0")
	h.Critical("postgres", ok)
	h.Optional("redis", ok)

	w := serve(t, h.ServeHTTP)
	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.2.0", resp.Version)
	require.Len(t, resp.Checks, 2)
	assert.Equal(t, "postgres", resp.Checks[0].Name)
	assert.Equal(t, "redis", resp.Checks[1].Name)
}

func TestHandler_OptionalFailureDegrades(t *testing.T) {
	h := NewHandler("dev")
	h.Critical("postgres", ok)
	h.Optional("redis", failing)

	w := serve(t, h.ServeHTTP)
	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, "connection refused", resp.Checks[1].Message)

	assert.Equal(t, http.StatusOK, serve(t, h.ReadinessHandler).Code)
}

func TestHandler_CriticalFailure(t *testing.T) {
	h := NewHandler("dev")
	h.Critical("postgres", failing)

	assert.Equal(t, http.StatusServiceUnavailable, serve(t, h.ServeHTTP).Code)

	w := serve(t, h.ReadinessHandler)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not ready", w.Body.String())
}

func TestHandler_ProbeTimeout(t *testing.T) {
	h := NewHandler("dev")
	h.timeout = 20 * time.Millisecond
	h.Critical("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status, checks := h.Run(context.Background())
	assert.Equal(t, StatusUnhealthy, status)
	assert.Contains(t, checks[0].Message, "deadline")
}

func TestLivenessHandler(t *testing.T) {
	w := serve(t, LivenessHandler)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHandler_NoProbes(t *testing.T) {
	w := serve(t, NewHandler("dev").ReadinessHandler)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", w.Body.String())
}
