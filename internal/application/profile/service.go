package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/campus-chat-api/internal/domain"
	"github.com/campus-chat-api/internal/pkg/validate"
)

// Attribute names used in partial update maps.
const (
	fieldName             = "name"
	fieldUsername         = "username"
	fieldProfilePic       = "profile_pic"
	fieldBio              = "bio"
	fieldUniversity       = "university"
	fieldYearLevel        = "year_level"
	fieldStudyPreferences = "study_preferences"
	fieldActiveMatch      = "active_match"
)

type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	// UpdateProfile merges req into the caller's record and returns the
	// JSON names of the fields written, sorted.
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) ([]string, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateProfile(ctx context.Context, current *domain.User, updates map[string]interface{}) error
}

type service struct {
	repo userStore
}

type ServiceDeps struct {
	UserRepo userStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) ([]string, error) {
	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !current.EmailVerified {
		return nil, domain.ErrNotVerified
	}

	if req.Username != nil {
		lower := strings.ToLower(*req.Username)
		req.Username = &lower
	}
	updates, accepted := toUpdates(req)
	if len(updates) == 0 {
		return nil, domain.ErrEmptyUpdate
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidField, err)
	}
	if !current.HasIdentity() && (req.Name == nil || req.Username == nil) {
		return nil, domain.ErrIncompleteInitialProfile
	}

	if req.Username != nil && *req.Username != current.CurrentUsername() {
		holder, err := s.repo.FindByUsername(ctx, *req.Username)
		switch {
		case err == nil && holder.UserID != userID:
			return nil, fmt.Errorf("%q: %w", *req.Username, domain.ErrUsernameTaken)
		case err != nil && !errors.Is(err, domain.ErrUserNotFound):
			return nil, fmt.Errorf("lookup username: %w", err)
		}
	}

	if err := s.repo.UpdateProfile(ctx, current, updates); err != nil {
		return nil, err
	}
	return accepted, nil
}

// toUpdates maps the non-nil request fields to stored attribute names.
func toUpdates(req domain.UpdateProfileRequest) (map[string]interface{}, []string) {
	updates := map[string]interface{}{}
	var accepted []string
	set := func(jsonName, attr string, v interface{}) {
		updates[attr] = v
		accepted = append(accepted, jsonName)
	}
	if req.Name != nil {
		set("name", fieldName, *req.Name)
	}
	if req.Username != nil {
		set("username", fieldUsername, *req.Username)
	}
	if req.ProfilePic != nil {
		set("profilePic", fieldProfilePic, *req.ProfilePic)
	}
	if req.Bio != nil {
		set("bio", fieldBio, *req.Bio)
	}
	if req.University != nil {
		set("university", fieldUniversity, *req.University)
	}
	if req.YearLevel != nil {
		set("yearLevel", fieldYearLevel, *req.YearLevel)
	}
	if req.StudyPreferences != nil {
		set("studyPreferences", fieldStudyPreferences, req.StudyPreferences)
	}
	if req.ActiveMatch != nil {
		set("activeMatch", fieldActiveMatch, *req.ActiveMatch)
	}
	sort.Strings(accepted)
	return updates, accepted
}
