package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/campus-chat-api/internal/domain"
	"go.uber.org/zap"
)

type contextKey string

const IdentityKey contextKey = "identity"

// TokenVerifier is implemented by jwtinfra.Verifier and google.Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// Auth returns middleware that validates the Bearer token and injects the caller identity into context.
// A missing token is 401; a rejected one is 403.
func Auth(verifier TokenVerifier, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearer(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "No token provided")
				return
			}
			id, err := verifier.Verify(r.Context(), tokenStr)
			if err != nil {
				log.Info("token rejected", zap.String("path", r.URL.Path), zap.Error(err))
				writeJSONError(w, http.StatusForbidden, "Invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), IdentityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

// IdentityFromContext extracts the caller identity from the request context.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(domain.Identity)
	return id, ok
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}
