package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sociable/internal/middleware"
	"sociable/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	profileKeyFormat = "profile:%d"
	// HashtagListKey holds the first page of the hashtag list.
	HashtagListKey = "hashtags:list"
)

const (
	ProfileTTL     = 5 * time.Minute
	HashtagListTTL = 5 * time.Minute
)

func ProfileKey(profileID uint) string {
	return fmt.Sprintf(profileKeyFormat, profileID)
}

// Store is a JSON cache over Redis. A nil Store or a Store without a client
// behaves as a permanently empty cache.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) enabled() bool {
	return s != nil && s.rdb != nil
}

func keyPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// GetJSON reports whether key was found and decoded into dest.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.enabled() {
		return false, nil
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.CacheLookups.WithLabelValues(keyPrefix(key), "miss").Inc()
		return false, nil
	}
	if err != nil {
		observability.CacheLookups.WithLabelValues(keyPrefix(key), "error").Inc()
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		observability.CacheLookups.WithLabelValues(keyPrefix(key), "error").Inc()
		return false, err
	}
	observability.CacheLookups.WithLabelValues(keyPrefix(key), "hit").Inc()
	return true, nil
}

// SetJSON marshals v and stores it under key with ttl.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, ttl).Err()
}

// Aside serves dest from the cache, or calls fetch to fill it and stores the
// result. Cache failures never fail the call; fetch errors are returned as is.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := s.GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := s.SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate deletes keys, logging failures.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if !s.enabled() || len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}
