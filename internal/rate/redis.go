package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces limiter keys.
const DefaultRedisPrefix = "mg:rl:"

// RedisStore keeps counters in Redis so that every instance shares one window per key.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a store over client. Empty prefix means DefaultRedisPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, prefix: prefix, now: now}
}

// hitScript counts one hit and reports the remaining window in one atomic
// step. A key without expiry (first hit, or a lost PEXPIRE) gets a fresh one.
var hitScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (Window, error) {
	ms := window.Milliseconds()
	if ms < 1 {
		ms = 1
	}

	res, err := hitScript.Run(ctx, s.client, []string{s.prefix + key}, ms).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return Window{}, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, res)
	}

	return Window{Count: res[0], ResetAt: s.now().Add(time.Duration(res[1]) * time.Millisecond)}, nil
}
