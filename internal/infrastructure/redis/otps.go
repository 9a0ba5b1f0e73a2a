// Package redis provides a Redis-backed OTP store for deployments that keep
// short-lived verification state out of the document database.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/campus-chat-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "otp:"
	hashCodeHash  = "code_hash"
	hashExpiresAt = "expires_at"
	hashAttempts  = "attempts"

	// purgeAfter keeps abandoned requests around past expiry so VerifyOTP
	// can still answer "expired" instead of "not found".
	purgeAfter = 24 * time.Hour
)

// deleteIfMatch removes KEYS[1] only when its code_hash equals ARGV[1].
var deleteIfMatch = redis.NewScript(`
if redis.call("HGET", KEYS[1], "code_hash") == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// addAttempt bumps attempts on KEYS[1] only when its code_hash equals ARGV[1].
var addAttempt = redis.NewScript(`
if redis.call("HGET", KEYS[1], "code_hash") == ARGV[1] then
  return redis.call("HINCRBY", KEYS[1], "attempts", 1)
end
return -1
`)

// OTPStore keeps one hash per user: otp:<user_id> -> {code_hash, expires_at, attempts}.
type OTPStore struct {
	client redis.UniversalClient
}

func NewOTPStore(client redis.UniversalClient) *OTPStore {
	return &OTPStore{client: client}
}

// NewClient connects and pings, failing fast on a bad address.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func key(userID string) string { return keyPrefix + userID }

// Put overwrites any pending request for the same user.
func (s *OTPStore) Put(ctx context.Context, rec *domain.OTPRecord) error {
	k := key(rec.UserID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k, hashCodeHash, rec.CodeHash, hashExpiresAt, rec.ExpiresAt.UnixMilli(), hashAttempts, 0)
		p.ExpireAt(ctx, k, rec.ExpiresAt.Add(purgeAfter))
		return nil
	})
	if err != nil {
		return storeErr("put otp request", err)
	}
	return nil
}

func (s *OTPStore) Get(ctx context.Context, userID string) (*domain.OTPRecord, error) {
	vals, err := s.client.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return nil, storeErr("get otp request", err)
	}
	if len(vals) == 0 {
		return nil, domain.ErrNoPendingOTP
	}
	return decode(userID, vals)
}

func (s *OTPStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, key(userID)).Err(); err != nil {
		return storeErr("delete otp request", err)
	}
	return nil
}

// DeleteIfMatch consumes the request only if it still carries codeHash.
func (s *OTPStore) DeleteIfMatch(ctx context.Context, userID, codeHash string) error {
	n, err := deleteIfMatch.Run(ctx, s.client, []string{key(userID)}, codeHash).Int()
	if err != nil {
		return storeErr("consume otp request", err)
	}
	if n == 0 {
		return domain.ErrNoPendingOTP
	}
	return nil
}

// AddAttempt counts one verify call against the request still carrying codeHash
// and returns the new count.
func (s *OTPStore) AddAttempt(ctx context.Context, userID, codeHash string) (int, error) {
	n, err := addAttempt.Run(ctx, s.client, []string{key(userID)}, codeHash).Int()
	if err != nil {
		return 0, storeErr("count otp attempt", err)
	}
	if n < 0 {
		return 0, domain.ErrNoPendingOTP
	}
	return n, nil
}

func decode(userID string, vals map[string]string) (*domain.OTPRecord, error) {
	ms, err := strconv.ParseInt(vals[hashExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("otp request %s: bad %s: %w", userID, hashExpiresAt, err)
	}
	hash, ok := vals[hashCodeHash]
	if !ok {
		return nil, fmt.Errorf("otp request %s: missing %s", userID, hashCodeHash)
	}
	var attempts int
	if v, ok := vals[hashAttempts]; ok {
		if attempts, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("otp request %s: bad %s: %w", userID, hashAttempts, err)
		}
	}
	return &domain.OTPRecord{
		UserID:    userID,
		CodeHash:  hash,
		ExpiresAt: time.UnixMilli(ms).UTC(),
		Attempts:  attempts,
	}, nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
