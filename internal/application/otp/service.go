package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campus-chat-api/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// defaultMaxAttempts bounds verify calls per issued code.
const defaultMaxAttempts = 5

// Attribute names used in partial update maps.
const (
	fieldStudentVerified = "student_verified"
	fieldEmailVerified   = "email_verified"
)

type Service interface {
	// RequestOTP issues a fresh code for the caller, replacing any pending one,
	// and hands it to the mail dispatcher.
	RequestOTP(ctx context.Context, userID, email string) error
	// VerifyOTP consumes the pending code and marks the user verified.
	// It reports whether the email belongs to a student domain.
	VerifyOTP(ctx context.Context, userID, email, code string) (bool, error)
}

type otpStore interface {
	Put(ctx context.Context, rec *domain.OTPRecord) error
	Get(ctx context.Context, userID string) (*domain.OTPRecord, error)
	DeleteIfMatch(ctx context.Context, userID, codeHash string) error
	AddAttempt(ctx context.Context, userID, codeHash string) (int, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type codeGenerator interface {
	Generate() (domain.OTPCode, error)
}

type mailDispatcher interface {
	Dispatch(email, code string)
}

type service struct {
	otps     otpStore
	users    userStore
	gen      codeGenerator
	mail     mailDispatcher
	hashCost int
	maxTries int
	now      func() time.Time
	log      *zap.Logger
}

type ServiceDeps struct {
	OTPRepo    otpStore
	UserRepo   userStore
	Generator  codeGenerator
	Dispatcher mailDispatcher
	HashCost   int
	// MaxAttempts is how many verify calls one issued code accepts. Defaults to 5.
	MaxAttempts int
	Now         func() time.Time // defaults to time.Now().UTC
	Log         *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		otps:     deps.OTPRepo,
		users:    deps.UserRepo,
		gen:      deps.Generator,
		mail:     deps.Dispatcher,
		hashCost: deps.HashCost,
		maxTries: deps.MaxAttempts,
		now:      deps.Now,
		log:      deps.Log,
	}
	if s.hashCost == 0 {
		s.hashCost = bcrypt.DefaultCost
	}
	if s.maxTries <= 0 {
		s.maxTries = defaultMaxAttempts
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *service) RequestOTP(ctx context.Context, userID, email string) error {
	u, err := s.users.Get(ctx, userID)
	switch {
	case err == nil && u.EmailVerified:
		return domain.ErrAlreadyVerified
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("load user: %w", err)
	}

	code, err := s.gen.Generate()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code.Code), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	rec := &domain.OTPRecord{UserID: userID, CodeHash: string(hash), ExpiresAt: code.ExpiresAt}
	if err := s.otps.Put(ctx, rec); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	s.mail.Dispatch(email, code.Code)
	s.log.Info("otp issued", zap.String("user_id", userID), zap.Time("expires_at", code.ExpiresAt))
	return nil
}

func (s *service) VerifyOTP(ctx context.Context, userID, email, code string) (bool, error) {
	rec, err := s.otps.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	// expired records stay in place; the next RequestOTP overwrites them
	if rec.Expired(s.now()) {
		return false, domain.ErrOTPExpired
	}
	// the attempt is counted before comparing so parallel guesses share the cap
	n, err := s.otps.AddAttempt(ctx, userID, rec.CodeHash)
	if err != nil {
		if errors.Is(err, domain.ErrNoPendingOTP) {
			return false, err
		}
		return false, fmt.Errorf("count otp attempt: %w", err)
	}
	if n > s.maxTries {
		s.log.Warn("otp attempt cap reached", zap.String("user_id", userID), zap.Int("attempts", n))
		return false, domain.ErrTooManyAttempts
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, domain.ErrInvalidCode
		}
		return false, fmt.Errorf("compare otp: %w", err)
	}

	if err := s.ensureUser(ctx, userID, email); err != nil {
		return false, err
	}
	student := domain.IsStudentEmail(email)
	if err := s.users.Update(ctx, userID, map[string]interface{}{
		fieldStudentVerified: student,
		fieldEmailVerified:   true,
	}); err != nil {
		return false, fmt.Errorf("mark user verified: %w", err)
	}

	// only one concurrent verifier can remove the record it read. A RequestOTP
	// that replaced the record in the meantime also makes this caller lose, even
	// though the user is already marked verified; that RequestOTP's next call
	// answers ErrAlreadyVerified and the stray code expires unused.
	if err := s.otps.DeleteIfMatch(ctx, userID, rec.CodeHash); err != nil {
		return false, err
	}
	s.log.Info("otp verified", zap.String("user_id", userID), zap.Bool("student", student))
	return student, nil
}

// ensureUser creates the user document on first verification.
func (s *service) ensureUser(ctx context.Context, userID, email string) error {
	_, err := s.users.Get(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("load user: %w", err)
	}
	err = s.users.Create(ctx, domain.NewVerifiedUser(userID, email, s.now()))
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
