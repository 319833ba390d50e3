package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"GreetFM/cache"
	"GreetFM/config"
	"GreetFM/core/auth"
	"GreetFM/core/greeting"
	"GreetFM/core/session"
	"GreetFM/repository"
)

// APIHandler carries the dependencies of the control-plane handlers.
type APIHandler struct {
	svc      *greeting.Service
	devices  repository.DeviceRepository
	hub      *session.DeviceHub
	presence *cache.Presence
	cfg      *config.Config
}

// NewAPIHandler creates the handler set.
func NewAPIHandler(svc *greeting.Service, devices repository.DeviceRepository, hub *session.DeviceHub, presence *cache.Presence, cfg *config.Config) *APIHandler {
	return &APIHandler{svc: svc, devices: devices, hub: hub, presence: presence, cfg: cfg}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"error": kind, "message": message})
}

// AuthMiddleware validates the control-plane bearer token.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if _, err := auth.ParseToken(token, h.cfg.JWTSecret); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		next(w, r)
	}
}
