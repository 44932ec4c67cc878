package ratelimiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript implements the token bucket algorithm atomically in
// Redis: it reads the current token count and last-refill timestamp
// from a hash, refills, consumes, and writes the result back in one
// round trip, so concurrent callers racing on the same key never
// observe a stale token count.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refillRate = tonumber(ARGV[2])
local refillIntervalMs = tonumber(ARGV[3])
local tokensRequested = tonumber(ARGV[4])
local nowMs = tonumber(ARGV[5])

local tokens = capacity
local lastRefill = nowMs

local existing = redis.call('HMGET', key, 'tokens', 'lastRefill')
if existing[1] then
	tokens = tonumber(existing[1])
	lastRefill = tonumber(existing[2])
end

local elapsed = nowMs - lastRefill
local intervalsElapsed = math.floor(elapsed / refillIntervalMs)
if intervalsElapsed > 0 then
	tokens = math.min(tokens + intervalsElapsed * refillRate, capacity)
	lastRefill = nowMs
end

tokens = tokens - tokensRequested

redis.call('HSET', key, 'tokens', tokens, 'lastRefill', lastRefill)
redis.call('PEXPIRE', key, refillIntervalMs * 2)

return {tokens, lastRefill}
`)

// RedisStore implements Store against a shared Redis instance, for
// multi-instance deployments where an in-process MemoryStore would let
// each instance enforce its own independent limit.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// ConsumeTokens implements Store.
func (s *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	now := time.Now()

	res, err := consumeScript.Run(ctx, s.client, []string{"ratelimit:" + key},
		config.Capacity,
		config.RefillRate,
		config.RefillInterval.Milliseconds(),
		tokens,
		now.UnixMilli(),
	).Result()
	if err != nil {
		return 0, time.Time{}, ErrStoreUnavailable
	}

	vals, ok := res.([]any)
	if !ok || len(vals) != 2 {
		return 0, time.Time{}, ErrStoreUnavailable
	}

	remaining, ok := vals[0].(int64)
	if !ok {
		return 0, time.Time{}, ErrStoreUnavailable
	}
	lastRefillMs, ok := vals[1].(int64)
	if !ok {
		return 0, time.Time{}, ErrStoreUnavailable
	}

	resetAt := time.UnixMilli(lastRefillMs).Add(config.RefillInterval)
	return int(remaining), resetAt, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, "ratelimit:"+key).Err()
}
