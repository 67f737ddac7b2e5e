package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stressvision/internal/handlers"
	"stressvision/internal/logger"
	"stressvision/internal/middleware"
	ws "stressvision/internal/services/websocket"
)

// SetupRoutes registers the preview websocket, status, metrics and log endpoints.
// A non-empty token protects every endpoint except /healthz.
func SetupRoutes(hub *ws.HubService, preview *ws.Preview, registry *prometheus.Registry, logger *logger.Logger, token string) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.AuthMiddleware(token))

	// API endpoints
	r.HandleFunc("/api/view", handlers.ViewWebsocketHandler(hub, logger))
	r.HandleFunc("/api/status", handlers.StatusHandler(preview)).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handlers.HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Log endpoints
	r.HandleFunc("/logs/{level:info|warning|error}", handlers.ShowLogsHandler(logger)).Methods(http.MethodGet)
	r.HandleFunc("/logs/{level:info|warning|error}/clear", handlers.ClearLogsHandler(logger)).Methods(http.MethodPost)

	return r
}
