package handler

import (
	"errors"
	"net/http"

	"github.com/campus-chat-api/internal/application/chat"
	"github.com/campus-chat-api/internal/domain"
	"github.com/campus-chat-api/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// ChatHandler issues chat SDK user tokens.
type ChatHandler struct {
	svc chat.Service
	log *zap.Logger
}

func NewChatHandler(svc chat.Service, log *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

func (h *ChatHandler) Token(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok || id.UserID == "" {
		writeError(w, http.StatusBadRequest, "Token has no UID or is invalid")
		return
	}
	tok, err := h.svc.IssueToken(r.Context(), id.UserID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrNotVerified):
		writeError(w, http.StatusForbidden, "Email must be verified before chatting")
	case err != nil:
		h.log.Error("issue chat token", zap.String("user_id", id.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Unable to issue chat token")
	default:
		writeSuccess(w, tok)
	}
}
