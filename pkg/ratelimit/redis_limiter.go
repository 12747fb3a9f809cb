// Package ratelimit implements a fixed-window rate limiter on Redis. It
// guards the AI generation command against double-taps and spam; a nil
// limiter or nil client disables limiting entirely.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// Limiter implements distributed fixed-window rate limiting using Redis.
type Limiter struct {
	client redis.UniversalClient
	prefix string
}

// NewLimiter creates a limiter with the given key prefix.
func NewLimiter(client redis.UniversalClient, prefix string) *Limiter {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		trimmed = "focusly:rate_limit"
	}
	return &Limiter{client: client, prefix: strings.TrimSuffix(trimmed, ":")}
}

// Consume counts one hit for (scope, subject) and reports the running count
// plus how long until the window resets. A disabled limiter always allows.
func (l *Limiter) Consume(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error) {
	if l == nil || l.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", l.prefix, scope, subject)
	raw, err := fixedWindowScript.Run(ctx, l.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}
	current, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return int(current), 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	return int(current), int(math.Ceil(float64(ttlMs) / 1000.0)), nil
}
