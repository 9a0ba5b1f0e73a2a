package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campus-chat-api/internal/domain"
)

// SuccessEnvelope and ErrorEnvelope are the only two response shapes.
type SuccessEnvelope struct {
	Success interface{} `json:"Success"`
}

type ErrorEnvelope struct {
	Error string `json:"Error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, v interface{}) {
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorEnvelope{Error: msg})
}

// statusFor maps a service error to an HTTP status and client message.
// Errors without a domain meaning become 500 with fallback as the message.
func statusFor(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAlreadyVerified):
		return http.StatusBadRequest, "User is already verified"
	case errors.Is(err, domain.ErrNoPendingOTP):
		return http.StatusBadRequest, "OTP not found or expired"
	case errors.Is(err, domain.ErrOTPExpired):
		return http.StatusBadRequest, "OTP has expired"
	case errors.Is(err, domain.ErrInvalidCode):
		return http.StatusBadRequest, "Invalid OTP"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "Too many failed attempts, request a new OTP"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusBadRequest, "User does not exist"
	case errors.Is(err, domain.ErrNotVerified):
		return http.StatusForbidden, "Email must be verified before updating details"
	case errors.Is(err, domain.ErrEmptyUpdate):
		return http.StatusBadRequest, "At least one field is required to update"
	case errors.Is(err, domain.ErrIncompleteInitialProfile):
		return http.StatusBadRequest, "Name and Username are required initially"
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusBadRequest, "Username is already taken"
	case errors.Is(err, domain.ErrInvalidField):
		// validator messages name the field and rule, nothing internal
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusConflict, "User details were changed by another request, please retry"
	case errors.Is(err, domain.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType, "Only JPEG, PNG or WebP images are accepted"
	case errors.Is(err, domain.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "File is too large"
	default:
		return http.StatusInternalServerError, fallback
	}
}
