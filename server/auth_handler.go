package server

import (
	"encoding/json"
	"net/http"

	"GreetFM/core/auth"
	"GreetFM/logger"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler exchanges the operator credentials for a bearer token.
// The admin password is configured as a bcrypt hash, never plaintext.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	if h.cfg.AdminPasswordHash == "" || h.cfg.JWTSecret == "" {
		logger.Error("login attempted without ADMIN_PASSWORD_HASH/JWT_SECRET configured")
		writeError(w, http.StatusServiceUnavailable, "not_configured", "authentication not configured")
		return
	}

	if req.Username != h.cfg.AdminUser || !auth.CheckSecretHash(req.Password, h.cfg.AdminPasswordHash) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "bad credentials")
		return
	}

	token, err := auth.GenerateToken(req.Username, h.cfg.JWTSecret, h.cfg.JWTTTL)
	if err != nil {
		logger.Error("token generation failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal", "could not issue token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
