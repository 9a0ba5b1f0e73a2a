package handler

import (
	"encoding/json"
	"net/http"

	"github.com/campus-chat-api/internal/application/otp"
	"github.com/campus-chat-api/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// OTPHandler serves the email verification endpoints.
type OTPHandler struct {
	svc otp.Service
	log *zap.Logger
}

func NewOTPHandler(svc otp.Service, log *zap.Logger) *OTPHandler {
	return &OTPHandler{svc: svc, log: log}
}

type verifyOTPRequest struct {
	OTP string `json:"otp"`
}

func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok || id.UserID == "" || id.Email == "" {
		writeError(w, http.StatusBadRequest, "UID or Email is missing from token")
		return
	}
	if err := h.svc.RequestOTP(r.Context(), id.UserID, id.Email); err != nil {
		h.fail(w, err, "Unable to process OTP request", id.UserID)
		return
	}
	writeSuccess(w, "OTP sent successfully")
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok || id.UserID == "" || id.Email == "" {
		writeError(w, http.StatusBadRequest, "UID or Email is missing from token")
		return
	}
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OTP == "" {
		writeError(w, http.StatusBadRequest, "OTP is required")
		return
	}
	student, err := h.svc.VerifyOTP(r.Context(), id.UserID, id.Email, req.OTP)
	if err != nil {
		h.fail(w, err, "Unable to verify OTP", id.UserID)
		return
	}
	if student {
		writeSuccess(w, "OTP verified and student verified")
		return
	}
	writeSuccess(w, "OTP verified but user is not a student")
}

func (h *OTPHandler) fail(w http.ResponseWriter, err error, fallback, userID string) {
	status, msg := statusFor(err, fallback)
	if status == http.StatusInternalServerError {
		h.log.Error(fallback, zap.String("user_id", userID), zap.Error(err))
	}
	writeError(w, status, msg)
}
