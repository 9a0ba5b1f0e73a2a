// Package memory provides in-process stores used for local development and flow tests.
// Data does not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/campus-chat-api/internal/domain"
)

// OTPStore keeps one pending OTP record per user id.
type OTPStore struct {
	mu sync.RWMutex
	m  map[string]domain.OTPRecord
}

func NewOTPStore() *OTPStore {
	return &OTPStore{m: make(map[string]domain.OTPRecord)}
}

// Put overwrites any pending record for the same user.
func (s *OTPStore) Put(_ context.Context, rec *domain.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[rec.UserID] = *rec
	return nil
}

func (s *OTPStore) Get(_ context.Context, userID string) (*domain.OTPRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[userID]
	if !ok {
		return nil, domain.ErrNoPendingOTP
	}
	return &rec, nil
}

func (s *OTPStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
	return nil
}

// DeleteIfMatch removes the record only if it still carries codeHash.
func (s *OTPStore) DeleteIfMatch(_ context.Context, userID, codeHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[userID]
	if !ok || rec.CodeHash != codeHash {
		return domain.ErrNoPendingOTP
	}
	delete(s.m, userID)
	return nil
}

// AddAttempt increments the attempt counter of the record still carrying codeHash
// and returns the new count.
func (s *OTPStore) AddAttempt(_ context.Context, userID, codeHash string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[userID]
	if !ok || rec.CodeHash != codeHash {
		return 0, domain.ErrNoPendingOTP
	}
	rec.Attempts++
	s.m[userID] = rec
	return rec.Attempts, nil
}

// Len returns the number of pending records.
func (s *OTPStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
