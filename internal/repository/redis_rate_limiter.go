package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const rateLimitKeyPrefix = "sms:ratelimit:"

// rateLimitScript: проверка и инкремент одним вызовом.
// Возвращает {allowed, count, pttl}.
var rateLimitScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if count >= limit then
	return {0, count, redis.call('PTTL', KEYS[1])}
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, count, redis.call('PTTL', KEYS[1])}
`)

// RedisRateLimiter реализует тот же фиксированный лимит, но общий для всех экземпляров.
type RedisRateLimiter struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb, now: time.Now}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key RateLimitKey, rule RateLimitRule) (RateLimitDecision, error) {
	raw, err := rateLimitScript.Run(ctx, l.rdb,
		[]string{rateLimitKeyPrefix + key.String()},
		rule.Limit, rule.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return RateLimitDecision{}, fmt.Errorf("rate limiter: allow %w", err)
	}
	res, err := int64Values(raw)
	if err != nil || len(res) != 3 {
		return RateLimitDecision{}, fmt.Errorf("rate limiter: unexpected script result %v", raw)
	}

	ttl := time.Duration(res[2]) * time.Millisecond
	if ttl < 0 {
		ttl = rule.Window
	}
	now := l.now()

	if res[0] == 0 {
		return RateLimitDecision{
			Allowed:    false,
			RetryAfter: ttl,
			ResetAt:    now.Add(ttl),
		}, nil
	}

	remaining := rule.Limit - int(res[1])
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitDecision{
		Allowed:   true,
		Remaining: remaining,
		ResetAt:   now.Add(ttl),
	}, nil
}

func (l *RedisRateLimiter) Len(ctx context.Context) (int, error) {
	return countKeys(ctx, l.rdb, rateLimitKeyPrefix)
}

// Sweep ничего не делает: окно живёт ровно PEXPIRE.
func (l *RedisRateLimiter) Sweep(_ context.Context) (int, error) {
	return 0, nil
}

func int64Values(raw []interface{}) ([]int64, error) {
	out := make([]int64, 0, len(raw))
	for _, v := range raw {
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected value %T", v)
		}
		out = append(out, n)
	}
	return out, nil
}
