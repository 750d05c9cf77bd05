// Package rediscache provides the optional Redis backend for the resource
// cache, for deployments where multiple coordinator instances should share
// fetched resource content. Entries expire through Redis TTLs, matching the
// in-memory backend's TTL-only invalidation.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/YmClash/vegapunk-sub006/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "vegapunk:resource:"

// Store is a Redis-backed resource cache store.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

type entry struct {
	Content   string    `json:"content"`
	FetchedAt time.Time `json:"fetched_at"`
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	logger.Info("redis resource cache connected", zap.String("addr", cfg.Addr))
	return &Store{
		client: client,
		logger: logger.With(zap.String("component", "rediscache")),
	}, nil
}

// Get returns the cached content for a resource URI.
func (s *Store) Get(ctx context.Context, uri string) (content string, fetchedAt time.Time, ok bool, err error) {
	raw, err := s.client.Get(ctx, keyPrefix+uri).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", time.Time{}, false, nil
	}
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("redis get %s: %w", uri, err)
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// A corrupt entry behaves like a miss; the caller re-fetches.
		s.logger.Warn("discarding corrupt cache entry", zap.String("uri", uri), zap.Error(err))
		return "", time.Time{}, false, nil
	}
	return e.Content, e.FetchedAt, true, nil
}

// Set stores resource content under the URI with the given TTL.
func (s *Store) Set(ctx context.Context, uri, content string, fetchedAt time.Time, ttl time.Duration) error {
	raw, err := json.Marshal(entry{Content: content, FetchedAt: fetchedAt})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+uri, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", uri, err)
	}
	return nil
}

// Len returns the number of cached resource entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	keys, err := s.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return 0, fmt.Errorf("redis keys: %w", err)
	}
	return len(keys), nil
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
