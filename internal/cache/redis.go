package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares cached values between the API server and the
// worker process, JSON-encoded. All failures degrade to cache misses.
type RedisCache[T any] struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache[T any](addr string, ttl time.Duration) *RedisCache[T] {
	return &RedisCache[T]{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return zero, false
	}
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		slog.WarnContext(ctx, "Discarding undecodable cache entry", "key", key, "error", err)
		return zero, false
	}
	return data, true
}

func (c *RedisCache[T]) Set(ctx context.Context, key string, data T) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.WarnContext(ctx, "Failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Failed to write cache entry", "key", key, "error", err)
	}
}

func (c *RedisCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		slog.WarnContext(ctx, "Failed to delete cache entry", "key", key, "error", err)
	}
}

func (c *RedisCache[T]) Close() error {
	return c.client.Close()
}
