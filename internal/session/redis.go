package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists sessions.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps each session as a JSON document with a sliding TTL.
type RedisStore struct {
	R   redis.Cmdable
	TTL time.Duration
}

const keyPrefix = "pos:session:"

func key(id string) string { return keyPrefix + id }

func (r RedisStore) ttl() time.Duration {
	if r.TTL <= 0 {
		return 12 * time.Hour
	}
	return r.TTL
}

// Get loads a session and extends its expiry.
func (r RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	data, err := r.R.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	_ = r.R.Expire(ctx, key(id), r.ttl()).Err()
	return &s, nil
}

// Save writes the session and resets its expiry.
func (r RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.R.Set(ctx, key(s.ID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete removes the session. Deleting an unknown id is not an error.
func (r RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.R.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
