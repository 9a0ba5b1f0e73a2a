package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	// auth layer
	ErrUnauthenticated   = errors.New("no token provided")
	ErrInvalidCredential = errors.New("invalid token")

	// OTP flow
	ErrAlreadyVerified = errors.New("user is already verified")
	ErrNoPendingOTP    = errors.New("otp not found or expired")
	ErrOTPExpired      = errors.New("otp has expired")
	ErrInvalidCode     = errors.New("invalid otp")
	ErrTooManyAttempts = errors.New("too many failed otp attempts")

	// profile flow
	ErrUserNotFound             = errors.New("user does not exist")
	ErrNotVerified              = errors.New("email must be verified")
	ErrEmptyUpdate              = errors.New("at least one field is required to update")
	ErrIncompleteInitialProfile = errors.New("name and username are required initially")
	ErrUsernameTaken            = errors.New("username is already taken")
	ErrInvalidField             = errors.New("invalid field")
	ErrConcurrentUpdate         = errors.New("record was modified concurrently")
	ErrUnsupportedMedia         = errors.New("unsupported media type")
	ErrTooLarge                 = errors.New("payload too large")

	// storage
	ErrAlreadyExists    = errors.New("already exists")
	ErrStoreUnavailable = errors.New("store unavailable")
)
