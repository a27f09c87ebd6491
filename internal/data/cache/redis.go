package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is a shared backend for multi-instance deployments. Expiry is
// delegated to Redis key TTLs, so the never-serve-stale invariant holds
// without a janitor.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a backend over an existing Redis client. All keys
// are namespaced under the given prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "launchradar"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Get returns the payload if the key exists and has not expired.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, s.prefix+":"+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// Set stores the payload with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+":"+key, payload, ttl).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
