package domain

import "time"

// Identity is the caller extracted from a verified bearer credential.
type Identity struct {
	UserID string
	Email  string
}

// OTPRecord is the single pending email OTP for a user.
// PK: user_id. Existence means verification is pending.
// CodeHash is the bcrypt hash of the issued numeric code.
// Attempts counts verify calls against this code; re-issuing resets it.
type OTPRecord struct {
	UserID    string    `json:"user_id"`
	CodeHash  string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// Expired reports whether the record is no longer valid at now.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// OTPCode is a freshly generated code, before hashing.
type OTPCode struct {
	Code      string
	ExpiresAt time.Time
}
