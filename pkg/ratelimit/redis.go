package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments the key and stamps the window expiry exactly once, so
// concurrent hits from multiple instances agree on a single window.
var hitScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// RedisStore backs the fixed-window counter with a shared Redis instance so
// independent processes enforce one combined limit per key.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	res, err := hitScript.Run(ctx, s.client, []string{s.prefix + ":" + key}, window.Milliseconds()).Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit: redis hit: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("ratelimit: unexpected script reply of length %d", len(res))
	}

	count, ok := res[0].(int64)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("ratelimit: unexpected count type %T", res[0])
	}
	ttlMs, ok := res[1].(int64)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("ratelimit: unexpected ttl type %T", res[1])
	}
	if ttlMs < 0 {
		// PTTL reports -1 for keys without expiry; treat as a full window.
		ttlMs = window.Milliseconds()
	}

	return int(count), time.Now().Add(time.Duration(ttlMs) * time.Millisecond), nil
}
