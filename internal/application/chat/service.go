package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/campus-chat-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Token is what the client needs to connect to the chat SDK as userID.
type Token struct {
	Token     string    `json:"token"`
	APIKey    string    `json:"apiKey"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims follows the chat provider's user token format.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type Service interface {
	IssueToken(ctx context.Context, userID string) (*Token, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	repo   userStore
	apiKey string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	APIKey   string
	Secret   string
	TTL      time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:   deps.UserRepo,
		apiKey: deps.APIKey,
		secret: []byte(deps.Secret),
		ttl:    deps.TTL,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// IssueToken signs an HS256 chat token. Only verified users may chat.
func (s *service) IssueToken(ctx context.Context, userID string) (*Token, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.EmailVerified {
		return nil, domain.ErrNotVerified
	}
	now := s.now().Truncate(time.Second)
	exp := now.Add(s.ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign chat token: %w", err)
	}
	return &Token{Token: signed, APIKey: s.apiKey, UserID: userID, ExpiresAt: exp}, nil
}
