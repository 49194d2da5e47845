package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// takeScript refills a bucket for the time elapsed since its last use, then
// debits the request if enough tokens are left.
//
// KEYS[1] bucket hash
// ARGV    capacity, refill per ms, requested, now (unix ms), ttl (ms)
// returns {allowed 0/1, remaining}
var takeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local per_ms = tonumber(ARGV[2])
local requested = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local state = redis.call("HMGET", KEYS[1], "tokens", "at")
local tokens = tonumber(state[1]) or capacity
local at = tonumber(state[2]) or now

if now > at then
    tokens = math.min(capacity, tokens + (now - at) * per_ms)
end

local allowed = 0
if tokens >= requested then
    tokens = tokens - requested
    allowed = 1
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "at", tostring(now))
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return {allowed, math.floor(tokens)}
`)

// RedisBackend keeps buckets in Redis hashes under "inkwell:rl:".
type RedisBackend struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, prefix: "inkwell:rl:", now: time.Now}
}

func (r *RedisBackend) Take(ctx context.Context, key string, b Bucket, n int) (bool, int, error) {
	vals, err := takeScript.Run(ctx, r.client, []string{r.prefix + key},
		b.Capacity,
		b.RefillPerSecond/1000,
		n,
		r.now().UnixMilli(),
		b.ttl().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis take: %w", err)
	}
	if len(vals) != 2 {
		return false, 0, fmt.Errorf("redis take: %d values returned, want 2", len(vals))
	}
	return vals[0] == 1, int(vals[1]), nil
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
