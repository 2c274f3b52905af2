// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/relaylabs/chatrelay/internal/middleware"
	"github.com/relaylabs/chatrelay/internal/model"
	"github.com/relaylabs/chatrelay/internal/service"
	"github.com/relaylabs/chatrelay/pkg/logger"
)

// SessionHandler handles the login endpoint.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(svc *service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: svc,
		logger:   log,
	}
}

// Login handles POST /login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.sessions.GetOrCreateUser(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "username must not be empty")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, &model.LoginResponse{UserID: user.ID})
}
