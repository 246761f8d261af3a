package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 HealthHandler 测试
// =============================================================================

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) HealthStatus {
	t.Helper()
	var status HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	return status
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	handler := NewHealthHandler(zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.HandleHealth(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	status := decodeHealth(t, w)
	assert.Equal(t, "healthy", status.Status)
	assert.False(t, status.Timestamp.IsZero())
	// 存活探针不执行依赖检查
	assert.Empty(t, status.Checks)
}

func TestHealthHandler_HandleHealthzAlias(t *testing.T) {
	handler := NewHealthHandler(zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.HandleHealthz(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeHealth(t, w).Status)
}

func TestHealthHandler_HandleReady(t *testing.T) {
	tests := []struct {
		name           string
		setupChecks    func(*HealthHandler)
		expectedStatus int
		checkStatus    func(*testing.T, HealthStatus)
	}{
		{
			// 无仓储与缓存时服务以纯内联模式运行，依旧就绪
			name:           "no registered checks",
			setupChecks:    func(h *HealthHandler) {},
			expectedStatus: http.StatusOK,
			checkStatus: func(t *testing.T, status HealthStatus) {
				assert.Equal(t, "healthy", status.Status)
				assert.Empty(t, status.Checks)
			},
		},
		{
			name: "store and cache pass",
			setupChecks: func(h *HealthHandler) {
				h.RegisterCheck(NewPingCheck("database", func(ctx context.Context) error { return nil }))
				h.RegisterCheck(NewPingCheck("redis", func(ctx context.Context) error { return nil }))
			},
			expectedStatus: http.StatusOK,
			checkStatus: func(t *testing.T, status HealthStatus) {
				assert.Equal(t, "healthy", status.Status)
				require.Len(t, status.Checks, 2)
				assert.Equal(t, "pass", status.Checks["database"].Status)
				assert.Equal(t, "pass", status.Checks["redis"].Status)
			},
		},
		{
			name: "cache down",
			setupChecks: func(h *HealthHandler) {
				h.RegisterCheck(NewPingCheck("database", func(ctx context.Context) error { return nil }))
				h.RegisterCheck(NewPingCheck("redis", func(ctx context.Context) error {
					return errors.New("connection refused")
				}))
			},
			expectedStatus: http.StatusServiceUnavailable,
			checkStatus: func(t *testing.T, status HealthStatus) {
				assert.Equal(t, "unhealthy", status.Status)
				require.Len(t, status.Checks, 2)
				assert.Equal(t, "pass", status.Checks["database"].Status)
				assert.Equal(t, "fail", status.Checks["redis"].Status)
				assert.Equal(t, "connection refused", status.Checks["redis"].Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(zap.NewNop())
			tt.setupChecks(h)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/ready", nil)
			h.HandleReady(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
			tt.checkStatus(t, decodeHealth(t, w))
		})
	}
}

func TestHealthHandler_HandleVersion(t *testing.T) {
	handler := NewHealthHandler(zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/version", nil)
	handler.HandleVersion("1.2.0", "2026-01-01T00:00:00Z", "abc123")(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1.2.0", data["version"])
	assert.Equal(t, "2026-01-01T00:00:00Z", data["build_time"])
	assert.Equal(t, "abc123", data["git_commit"])
}

func TestHealthHandler_ConcurrentRegisterAndReady(t *testing.T) {
	handler := NewHealthHandler(zap.NewNop())
	for i := 0; i < 10; i++ {
		name := string(rune('a' + i))
		handler.RegisterCheck(NewPingCheck(name, func(ctx context.Context) error { return nil }))
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/ready", nil)
			handler.HandleReady(w, r)
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
