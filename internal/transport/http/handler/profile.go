package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/campus-chat-api/internal/application/profile"
	"github.com/campus-chat-api/internal/domain"
	"github.com/campus-chat-api/internal/transport/http/middleware"
	"go.uber.org/zap"
)

const maxProfileBody = 64 << 10

// ProfileHandler serves the caller's own user document.
type ProfileHandler struct {
	svc profile.Service
	log *zap.Logger
}

func NewProfileHandler(svc profile.Service, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, log: log}
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok || id.UserID == "" {
		writeError(w, http.StatusBadRequest, "Token has no UID or is invalid")
		return
	}
	var req domain.UpdateProfileRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProfileBody))
	dec.DisallowUnknownFields()
	// an empty body is an empty update, reported after the verification gate
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	fields, err := h.svc.UpdateProfile(r.Context(), id.UserID, req)
	if err != nil {
		status, msg := statusFor(err, "Unable to update user details")
		if status == http.StatusInternalServerError {
			h.log.Error("update user details", zap.String("user_id", id.UserID), zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}
	h.log.Info("user details updated", zap.String("user_id", id.UserID), zap.Strings("fields", fields))
	writeSuccess(w, "User details updated successfully")
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok || id.UserID == "" {
		writeError(w, http.StatusBadRequest, "Token has no UID or is invalid")
		return
	}
	u, err := h.svc.Get(r.Context(), id.UserID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User does not exist")
	case err != nil:
		h.log.Error("get user details", zap.String("user_id", id.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Unable to fetch user details")
	default:
		writeSuccess(w, u)
	}
}
