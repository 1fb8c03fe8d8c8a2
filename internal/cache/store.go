package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ProjectsVersionKey is bumped whenever the set of linkable projects changes.
	ProjectsVersionKey = "projects:version"
	// SuggestionTTL bounds how long a cached suggestion list is served.
	SuggestionTTL = 5 * time.Minute
)

// SuggestionKey is the cache key for one viewer's suggestions for a term at
// a given page size.
func SuggestionKey(version int64, viewerID, term string, limit int) string {
	return fmt.Sprintf("hashtag:v%d:%s:%d:%s", version, viewerID, limit, term)
}

// Store wraps a Redis client with JSON helpers. A Store over a nil client is
// a valid no-op cache.
type Store struct {
	rdb *redis.Client
}

// New returns a Store backed by rdb.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.rdb != nil
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first, on miss it calls fetch (which should populate dest),
// then stores the result in Redis with ttl. Cache read errors fall through to fetch.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if found, err := s.GetJSON(ctx, key, dest); err == nil && found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	_ = s.SetJSON(ctx, key, dest, ttl)
	return nil
}

// Version reads a version counter, zero when unset or unavailable.
func (s *Store) Version(ctx context.Context, key string) int64 {
	if !s.Enabled() {
		return 0
	}
	v, err := s.rdb.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return v
}

// Bump increments a version counter so keys derived from it go stale.
func (s *Store) Bump(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	return s.rdb.Incr(ctx, key).Err()
}
