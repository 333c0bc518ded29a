package auth

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "login_attempts:"

// AttemptStore tracks failed login attempts per email. Increments must be
// atomic so two concurrent failed logins cannot lose an update and slip past
// the lockout threshold. Unlike the cache, this store surfaces backend errors:
// a lockout counter must not fail open.
type AttemptStore interface {
	// Increment records one failed attempt and returns the new count.
	Increment(ctx context.Context, email string) (int64, error)
	// Count returns the current number of failed attempts.
	Count(ctx context.Context, email string) (int64, error)
	// Reset clears the counter for the email.
	Reset(ctx context.Context, email string) error
}

// RedisAttemptStore keeps counters in Redis using atomic INCR.
type RedisAttemptStore struct {
	client *redis.Client
}

var _ AttemptStore = (*RedisAttemptStore)(nil)

// NewAttemptStore creates an attempt store backed by the given Redis instance.
func NewAttemptStore(addr, password string, db int) *RedisAttemptStore {
	return &RedisAttemptStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func attemptKey(email string) string {
	return attemptKeyPrefix + email
}

// Increment atomically bumps the counter for email.
func (s *RedisAttemptStore) Increment(ctx context.Context, email string) (int64, error) {
	n, err := s.client.Incr(ctx, attemptKey(email)).Result()
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return n, nil
}

// Count returns the counter for email, zero if absent.
func (s *RedisAttemptStore) Count(ctx context.Context, email string) (int64, error) {
	n, err := s.client.Get(ctx, attemptKey(email)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	return n, nil
}

// Reset deletes the counter for email.
func (s *RedisAttemptStore) Reset(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, attemptKey(email)).Err(); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}
