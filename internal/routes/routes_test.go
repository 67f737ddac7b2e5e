package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stressvision/internal/logger"
	"stressvision/internal/metrics"
	ws "stressvision/internal/services/websocket"
)

func newRouter(t *testing.T) (http.Handler, *logger.Logger, *ws.Preview) {
	return newRouterWithToken(t, "")
}

func newRouterWithToken(t *testing.T, token string) (http.Handler, *logger.Logger, *ws.Preview) {
	t.Helper()
	log, err := logger.NewLogger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	registry := prometheus.NewRegistry()
	m, err := metrics.NewPipelineMetrics(registry)
	require.NoError(t, err)
	m.RecordFrameRead()

	hub := ws.NewHubService(log)
	preview := ws.NewPreview(hub, nil, log)
	return SetupRoutes(hub, preview, registry, log, token), log, preview
}

func TestRoutes_Health(t *testing.T) {
	router, _, _ := newRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRoutes_Status(t *testing.T) {
	router, _, preview := newRouter(t)
	preview.SetRun("run-42")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var msg ws.PreviewMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "run-42", msg.RunID)
}

func TestRoutes_Metrics(t *testing.T) {
	router, _, _ := newRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pipeline_frames_read_total 1")
}

func TestRoutes_Logs(t *testing.T) {
	router, log, _ := newRouter(t)
	log.Warning("frame %d timed out", 12)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/warning", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "frame 12 timed out")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logs/warning/clear", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	data, err := os.ReadFile(filepath.Join(log.LogDir(), "warning.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "frame 12 timed out")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/debug", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_Token(t *testing.T) {
	router, _, _ := newRouterWithToken(t, "s3cret")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics?token=s3cret", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
