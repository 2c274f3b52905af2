package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/relaylabs/chatrelay/internal/middleware"
	"github.com/relaylabs/chatrelay/internal/model"
	"github.com/relaylabs/chatrelay/internal/service"
	"github.com/relaylabs/chatrelay/internal/store"
	"github.com/relaylabs/chatrelay/pkg/logger"
)

// ChatHandler handles the chat endpoint.
type ChatHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   svc,
		logger: log,
	}
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateUserID(req.UserID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.chat.Chat(r.Context(), req.UserID, req.Message)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("chat failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process chat")
		return
	}

	writeJSON(w, http.StatusOK, &model.ChatResponse{Reply: reply})
}
