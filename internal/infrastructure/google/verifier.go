package google

import (
	"context"
	"fmt"

	"github.com/campus-chat-api/internal/domain"
	"google.golang.org/api/idtoken"
)

// validateFunc matches idtoken.Validate.
type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Verifier verifies Google ID tokens against a specific client ID.
type Verifier struct {
	clientID string
	validate validateFunc
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify validates the Google ID token and returns the caller identity.
// Returns a domain.ErrInvalidCredential-wrapped error if the token is invalid
// or its email is not verified by Google.
func (v *Verifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	p, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid google token: %w: %w", domain.ErrInvalidCredential, err)
	}
	email, _ := p.Claims["email"].(string)
	if verified, _ := p.Claims["email_verified"].(bool); email != "" && !verified {
		return domain.Identity{}, fmt.Errorf("google email not verified: %w", domain.ErrInvalidCredential)
	}
	return domain.Identity{UserID: p.Subject, Email: email}, nil
}
