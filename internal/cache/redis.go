package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/saaga0h/gammad/pkg/redis"
)

// RedisStore keeps entries as JSON strings under gammad:cache:{key}.
// Keys carry no Redis expiry; freshness is decided at read time like the
// other backends.
type RedisStore struct {
	codec
	client redis.Client
}

// NewRedisStore wraps a Redis client
func NewRedisStore(client redis.Client, logger *slog.Logger, opts ...Option) *RedisStore {
	return &RedisStore{codec: newCodec(logger, opts), client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string, ttl time.Duration, dst any) bool {
	val, err := r.client.Get(ctx, redis.CacheKey(key))
	if errors.Is(err, redis.ErrKeyNotFound) {
		return false
	}
	if err != nil {
		r.logger.Warn("Failed to read cache entry", "key", key, "error", err)
		return false
	}
	return r.decode(key, []byte(val), ttl, dst)
}

func (r *RedisStore) Put(ctx context.Context, key string, value any) error {
	data, err := r.encode(value)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}
	return r.client.Set(ctx, redis.CacheKey(key), string(data), 0)
}

func (r *RedisStore) Clear(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, redis.CachePattern())
	if err != nil {
		return err
	}
	return r.client.Del(ctx, keys...)
}
