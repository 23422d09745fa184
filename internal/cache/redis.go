package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// RedisStore keeps entries in Redis. Keys expire on their own after TTL, and
// Write uses SETNX so an existing bucket is never replaced.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps rdb. prefix namespaces the keys; ttl should cover the
// longest retention window.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Read(ctx context.Context, key string, v any) error {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptEntry, key, err)
	}
	return nil
}

func (s *RedisStore) Write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", key, err)
	}
	ok, err := s.rdb.SetNX(ctx, s.key(key), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		log.Debug().Str("key", key).Msg("cache entry exists, skipping write")
	}
	return nil
}

func (s *RedisStore) Prune(ctx context.Context, key string) {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("prune cache entry")
	}
}

// Ping checks the connection, for health reporting.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
