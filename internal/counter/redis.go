package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWithTTLScript increments and stamps the TTL in one round trip. The TTL
// is only applied when the increment created the key, so a counter's window
// never slides.
const incrWithTTLScript = `
local value = redis.call("INCRBY", KEYS[1], 1)
if value == 1 and tonumber(ARGV[1]) > 0 then
    redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return value
`

// decrIfExistsScript rolls back an increment without resurrecting a key that
// already expired.
const decrIfExistsScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
    return redis.call("DECRBY", KEYS[1], 1)
end
return 0
`

// RedisStore implements Store on a shared Redis instance. Scripts are
// compiled once and run via EVALSHA.
type RedisStore struct {
	client    *redis.Client
	incrByTTL *redis.Script
	decrSafe  *redis.Script
}

// NewRedisStore wraps an existing client. The caller owns the client's
// lifecycle and timeouts.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:    client,
		incrByTTL: redis.NewScript(incrWithTTLScript),
		decrSafe:  redis.NewScript(decrIfExistsScript),
	}
}

// IncrWithTTL implements Store.
func (s *RedisStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	ttlSecs := int64(ttl / time.Second)
	val, err := s.incrByTTL.Run(ctx, s.client, []string{key}, ttlSecs).Int64()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return val, nil
}

// Decr implements Store.
func (s *RedisStore) Decr(ctx context.Context, key string) error {
	if err := s.decrSafe.Run(ctx, s.client, []string{key}).Err(); err != nil {
		return fmt.Errorf("decr %s: %w", key, err)
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return val, nil
}

// SetNX implements Store.
func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return ok, nil
}
