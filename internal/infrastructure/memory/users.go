package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campus-chat-api/internal/domain"
)

// UserStore mirrors dynamo.UserRepo semantics: conditional create,
// version-checked profile updates and a username claim index.
type UserStore struct {
	mu     sync.RWMutex
	users  map[string]*domain.User
	claims map[string]string // username -> user id
	nowF   func() time.Time
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:  make(map[string]*domain.User),
		claims: make(map[string]string),
		nowF:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.UserID]; ok {
		return fmt.Errorf("user %s: %w", u.UserID, domain.ErrAlreadyExists)
	}
	c := cloneUser(u)
	s.users[u.UserID] = c
	if name := c.CurrentUsername(); name != "" {
		s.claims[name] = c.UserID
	}
	return nil
}

func (s *UserStore) Get(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.claims[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *UserStore) Update(_ context.Context, userID string, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if len(updates) == 0 {
		return fmt.Errorf("no fields to update")
	}
	return s.apply(u, updates)
}

func (s *UserStore) UpdateProfile(_ context.Context, current *domain.User, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[current.UserID]
	if !ok || u.Version != current.Version {
		return domain.ErrConcurrentUpdate
	}
	if len(updates) == 0 {
		return fmt.Errorf("no fields to update")
	}
	newName, _ := updates["username"].(string)
	oldName := u.CurrentUsername()
	if newName != "" && newName != oldName {
		if holder, taken := s.claims[newName]; taken && holder != u.UserID {
			return fmt.Errorf("%q: %w", newName, domain.ErrUsernameTaken)
		}
	}
	// apply first so a bad field leaves the claim index untouched
	if err := s.apply(u, updates); err != nil {
		return err
	}
	if newName != "" && newName != oldName {
		s.claims[newName] = u.UserID
		if oldName != "" && s.claims[oldName] == u.UserID {
			delete(s.claims, oldName)
		}
	}
	return nil
}

// apply writes updates (keyed by stored attribute name) onto a copy of u
// and swaps it in only when every field was accepted.
func (s *UserStore) apply(u *domain.User, updates map[string]interface{}) error {
	next := cloneUser(u)
	for k, v := range updates {
		if err := setField(next, k, v); err != nil {
			return err
		}
	}
	next.UpdatedAt = s.nowF()
	next.Version++
	*u = *next
	return nil
}

func setField(u *domain.User, attr string, v interface{}) error {
	switch attr {
	case "name":
		return assign(&u.Name, attr, v)
	case "username":
		s, ok := v.(string)
		if !ok {
			return badType(attr, v)
		}
		u.Username = &s
	case "profile_pic":
		return assign(&u.ProfilePic, attr, v)
	case "bio":
		return assign(&u.Bio, attr, v)
	case "university":
		return assign(&u.University, attr, v)
	case "year_level":
		return assign(&u.YearLevel, attr, v)
	case "active_match":
		s, ok := v.(string)
		if !ok {
			return badType(attr, v)
		}
		u.ActiveMatch = &s
	case "study_preferences":
		m, ok := v.(map[string]interface{})
		if !ok {
			return badType(attr, v)
		}
		u.StudyPreferences = copyMap(m)
	case "student_verified":
		b, ok := v.(bool)
		if !ok {
			return badType(attr, v)
		}
		u.StudentVerified = &b
	case "email_verified":
		b, ok := v.(bool)
		if !ok {
			return badType(attr, v)
		}
		u.EmailVerified = b
	default:
		return fmt.Errorf("unknown attribute %q", attr)
	}
	return nil
}

func assign(dst *string, attr string, v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return badType(attr, v)
	}
	*dst = s
	return nil
}

func badType(attr string, v interface{}) error {
	return fmt.Errorf("attribute %q: unexpected type %T", attr, v)
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.Username != nil {
		name := *u.Username
		c.Username = &name
	}
	if u.ActiveMatch != nil {
		m := *u.ActiveMatch
		c.ActiveMatch = &m
	}
	if u.StudentVerified != nil {
		b := *u.StudentVerified
		c.StudentVerified = &b
	}
	c.StudyPreferences = copyMap(u.StudyPreferences)
	return &c
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
