package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "gs"

// RedisBackend stores credentials as plain string keys "<prefix>:<key>".
// It is meant for processes that share one login, such as replicas of a
// storefront BFF.
type RedisBackend struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	owned  bool
}

// NewRedisBackend wraps client. A zero ttl stores keys without expiry.
// Close does not close client.
func NewRedisBackend(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBackend{redis: client, prefix: prefix, ttl: ttl}
}

func (r *RedisBackend) key(k string) string {
	return r.prefix + ":" + k
}

// Load implements Backend.
func (r *RedisBackend) Load(ctx context.Context, key string) (string, bool, error) {
	v, err := r.redis.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Save implements Backend.
func (r *RedisBackend) Save(ctx context.Context, key, value string) error {
	return r.redis.Set(ctx, r.key(key), value, r.ttl).Err()
}

// Delete implements Backend. All keys go out in a single DEL.
func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.redis.Del(ctx, full...).Err()
}

// Close implements Backend.
func (r *RedisBackend) Close() error {
	if !r.owned {
		return nil
	}
	return r.redis.Close()
}
