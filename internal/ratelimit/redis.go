package ratelimit

import (
    "context"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisStore shares fixed-window counters across replicas.  The whole
// increment-and-expire sequence runs inside a Lua script so it is atomic
// per key on the Redis side.
type RedisStore struct {
    rdb    *redis.Client
    script *redis.Script
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
    return &RedisStore{
        rdb: rdb,
        script: redis.NewScript(`
            local count = redis.call('INCR', KEYS[1])
            if count == 1 then
                redis.call('PEXPIRE', KEYS[1], ARGV[1])
            end
            local ttl = redis.call('PTTL', KEYS[1])
            if ttl < 0 then
                redis.call('PEXPIRE', KEYS[1], ARGV[1])
                ttl = tonumber(ARGV[1])
            end
            return { count, ttl }
        `),
    }
}

// Incr counts one request against key inside its current window.  The key's
// TTL doubles as the window boundary: the first increment sets it, and the
// counter disappears when the window elapses.
func (s *RedisStore) Incr(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
    vals, err := s.script.Run(ctx, s.rdb, []string{key}, window.Milliseconds()).Result()
    if err != nil {
        return Decision{}, err
    }

    var count, ttlMs int64
    if arr, ok := vals.([]interface{}); ok && len(arr) == 2 {
        count = asInt64(arr[0])
        ttlMs = asInt64(arr[1])
    }

    d := Decision{Limit: limit, Allowed: count <= int64(limit)}
    if remaining := int64(limit) - count; remaining > 0 {
        d.Remaining = int(remaining)
    }
    if !d.Allowed {
        d.RetryAfter = time.Duration(ttlMs) * time.Millisecond
    }
    return d, nil
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int32:
        return int64(t)
    case int:
        return int64(t)
    case float64:
        return int64(t)
    }
    return 0
}
