package avatar

import (
	"context"
	"fmt"
	"io"

	"github.com/campus-chat-api/internal/domain"
	"github.com/campus-chat-api/internal/pkg/id"
	"go.uber.org/zap"
)

// extensions lists the accepted image types and the object suffix for each.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type Service interface {
	// Upload stores a profile picture and points the caller's profilePic at it.
	Upload(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type profileService interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) ([]string, error)
}

type service struct {
	store    objectStore
	profiles profileService
	maxBytes int64
	log      *zap.Logger
}

type ServiceDeps struct {
	Store    objectStore
	Profiles profileService
	MaxBytes int64
	Log      *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &service{store: deps.Store, profiles: deps.Profiles, maxBytes: deps.MaxBytes, log: log}
}

// Allowed reports whether contentType is an accepted image type.
func Allowed(contentType string) bool {
	_, ok := extensions[contentType]
	return ok
}

func (s *service) Upload(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("%q: %w", contentType, domain.ErrUnsupportedMedia)
	}
	if size > s.maxBytes {
		return "", fmt.Errorf("%d bytes: %w", size, domain.ErrTooLarge)
	}
	// reject before uploading so unverified callers cannot fill the bucket
	u, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if !u.EmailVerified {
		return "", domain.ErrNotVerified
	}

	key := fmt.Sprintf("profile-pics/%s/%s%s", userID, id.New(), ext)
	url, err := s.store.Upload(ctx, key, r, size, contentType)
	if err != nil {
		return "", fmt.Errorf("upload profile picture: %w", err)
	}
	if _, err := s.profiles.UpdateProfile(ctx, userID, domain.UpdateProfileRequest{ProfilePic: &url}); err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.log.Warn("remove orphaned profile picture", zap.String("key", key), zap.Error(derr))
		}
		return "", err
	}
	return url, nil
}
