package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var incrWithTTL = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

type RedisSecretStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisSecretStore namespaces every key with prefix when it is set.
func NewRedisSecretStore(client redis.UniversalClient, prefix string) *RedisSecretStore {
	return &RedisSecretStore{client: client, prefix: prefix}
}

func (s *RedisSecretStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisSecretStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *RedisSecretStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Incr increments and arms the expiry in one server-side step, so a
// counter can never outlive its window.
func (s *RedisSecretStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return incrWithTTL.Run(ctx, s.client, []string{s.key(key)}, ttl.Milliseconds()).Int64()
}

func (s *RedisSecretStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.client.Del(ctx, full...).Err()
}

func (s *RedisSecretStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
