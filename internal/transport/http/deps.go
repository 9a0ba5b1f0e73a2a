package http

import (
	"context"
	"io"

	"github.com/campus-chat-api/internal/domain"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// UpdateProfile writes updates only if the stored version still matches current.
	UpdateProfile(ctx context.Context, current *domain.User, updates map[string]interface{}) error
}

// OTPRepository is the minimal interface the router requires from an OTP store.
type OTPRepository interface {
	Put(ctx context.Context, rec *domain.OTPRecord) error
	Get(ctx context.Context, userID string) (*domain.OTPRecord, error)
	DeleteIfMatch(ctx context.Context, userID, codeHash string) error
	AddAttempt(ctx context.Context, userID, codeHash string) (int, error)
}

// ObjectStore is the minimal interface the router requires from an object storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// MailDispatcher hands OTP emails off for delivery without blocking the request.
type MailDispatcher interface {
	Dispatch(email, code string)
}
