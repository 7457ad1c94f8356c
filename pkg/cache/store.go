package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store handles caching operations with a Redis backend.
type Store struct {
	redis   *redis.Client
	version string
}

// NewStore creates a cache store. The version tag is stamped onto every
// entry written so that payloads from a superseded API version can be told
// apart from current ones.
func NewStore(redisClient *redis.Client, version string) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis:   redisClient,
		version: version,
	}
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or the entry has expired.
// Expired entries are deleted opportunistically on read.
func (s *Store) Get(ctx context.Context, key Key) (*Entry, error) {
	class := string(key.Class)

	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues(class).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	// Lazy expiry: the row may physically exist past its expiry when the
	// Redis TTL lags the entry's own timestamp.
	if entry.IsExpired() {
		_ = s.Delete(ctx, key)
		CacheExpired.WithLabelValues(class).Inc()
		CacheMisses.WithLabelValues(class).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(class).Inc()
	return &entry, nil
}

// Put stores a payload under key with the given TTL. Upsert semantics: a
// write for an existing key replaces its payload and resets expiry.
func (s *Store) Put(ctx context.Context, key Key, payload json.RawMessage, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", ttl)
	}
	if len(payload) == 0 {
		return fmt.Errorf("payload cannot be empty")
	}

	now := time.Now()
	entry := Entry{
		Payload:   payload,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
		Version:   s.version,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a cache entry.
func (s *Store) Delete(ctx context.Context, key Key) error {
	if err := s.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// GetStatic reads a cached static hotel descriptor. Returns ErrCacheMiss
// when absent or expired.
func (s *Store) GetStatic(ctx context.Context, hotelID, language string) (json.RawMessage, error) {
	entry, err := s.Get(ctx, StaticKey(hotelID, language))
	if err != nil {
		return nil, err
	}
	return entry.Payload, nil
}

// PutStatic caches a static hotel descriptor with the class default TTL.
func (s *Store) PutStatic(ctx context.Context, hotelID, language string, payload json.RawMessage) error {
	return s.Put(ctx, StaticKey(hotelID, language), payload, TTLStatic)
}
