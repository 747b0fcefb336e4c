package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"invite-tracker-backend/internal/config"
)

// NewRouter registers every route under its config route name so the auth
// middleware can look up the required security level.
func NewRouter(h *Handler, auth *AuthMiddleware, metricsHandler http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware, auth.Handler)

	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet).Name(config.RouteHealth)
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods(http.MethodGet).Name(config.RouteMetrics)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/joins", h.RecordJoins).Methods(http.MethodPost).Name(config.RouteRecordJoins)
	api.HandleFunc("/members/{id:-?[0-9]+}/progress", h.CheckProgress).Methods(http.MethodGet).Name(config.RouteCheckProgress)
	api.HandleFunc("/members/{id:-?[0-9]+}/key", h.RequestKey).Methods(http.MethodPost).Name(config.RouteRequestKey)
	api.HandleFunc("/chats/{id:-?[0-9]+}/reset", h.ResetChat).Methods(http.MethodPost).Name(config.RouteResetChat)
	api.HandleFunc("/stats", h.LedgerStats).Methods(http.MethodGet).Name(config.RouteLedgerStats)

	return router
}
