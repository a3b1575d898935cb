package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store is a read-through JSON cache in front of the aggregation queries.
// A nil *Store is valid and always misses, so Redis stays optional.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a cache store backed by Redis. Returns nil when addr is empty.
func New(addr, password string, ttl time.Duration, logger *zap.Logger) *Store {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &Store{
		client: client,
		ttl:    ttl,
		logger: logger.Named("cache"),
	}
}

// Key builds a cache key from its parts
func Key(parts ...string) string {
	return "analytics:" + strings.Join(parts, ":")
}

// Get loads a cached value into dest. Returns false on miss or any error;
// cache failures never surface to callers.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) bool {
	if s == nil {
		return false
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.logger.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores a value under key for the configured TTL
func (s *Store) Set(ctx context.Context, key string, value interface{}) {
	if s == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateUser drops every cached aggregation for one user
func (s *Store) InvalidateUser(ctx context.Context, userID string) {
	if s == nil {
		return
	}
	pattern := fmt.Sprintf("analytics:*:%s:*", userID)
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn("cache invalidate failed", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
}

// Close releases the Redis connection
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
