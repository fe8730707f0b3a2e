package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store defines session persistence operations.
type Store interface {
	// Create persists a new session.
	Create(ctx context.Context, s *Session) error

	// Get retrieves a session by its token.
	// Returns ErrNotFound if the session doesn't exist and ErrExpired if it
	// outlived its expiry.
	Get(ctx context.Context, token string) (*Session, error)

	// Delete removes a session by its token.
	Delete(ctx context.Context, token string) error

	// DeleteByUserID removes all sessions for a user.
	// Used on account deletion and password change.
	DeleteByUserID(ctx context.Context, userID string) error
}

const (
	sessionKeyPrefix = "session:"
	userKeyPrefix    = "user_sessions:"
)

// RedisStore stores sessions in Redis keyed by token, with a per-user set
// for bulk invalidation.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+s.Token, data, ttl)
	pipe.SAdd(ctx, userKeyPrefix+s.UserID, s.Token)
	// The index set must outlive the longest session it references.
	pipe.Expire(ctx, userKeyPrefix+s.UserID, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	// Redis TTL normally reaps expired sessions; this check covers the
	// window between logical expiry and key eviction.
	if s.IsExpired() {
		_ = r.Delete(ctx, token)
		return nil, ErrExpired
	}

	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	s, err := r.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
			return nil
		}
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+token)
	pipe.SRem(ctx, userKeyPrefix+s.UserID, token)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) DeleteByUserID(ctx context.Context, userID string) error {
	tokens, err := r.client.SMembers(ctx, userKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	pipe := r.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, sessionKeyPrefix+token)
	}
	pipe.Del(ctx, userKeyPrefix+userID)
	_, err = pipe.Exec(ctx)
	return err
}
