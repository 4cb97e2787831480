package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/sales-pos/internal/config"
)

// tokenBucket takes one token from the bucket at KEYS[1], refilling it for
// every whole interval elapsed since the last refill.  The reply is
// {allowed (0/1), tokens left, milliseconds until the next refill}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
  tokens = math.min(capacity, tokens + intervals * refill_tokens)
  last_refill = last_refill + intervals * interval_ms
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_ms }
`)

// rateVerdict is the reply of the token bucket script.
type rateVerdict struct {
	allowed   bool
	remaining int64
	retryMs   int64
}

func parseVerdict(v interface{}) (rateVerdict, bool) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) != 3 {
		return rateVerdict{}, false
	}
	return rateVerdict{
		allowed:   asInt64(arr[0]) == 1,
		remaining: asInt64(arr[1]),
		retryMs:   asInt64(arr[2]),
	}, true
}

// NewTokenBucket throttles clients of the catalog and of sale recording with
// a Redis token bucket per key.  Without Redis, or when disabled, every
// request passes; a Redis failure lets the request through and is logged.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttlSeconds := int64(cfg.TTL / time.Second)
	limit := strconv.Itoa(cfg.Capacity)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			reply, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(), ttlSeconds).Result()
			if err != nil {
				log.Warn("rate limit check skipped", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			verdict, ok := parseVerdict(reply)
			if !ok {
				log.Warn("rate limit reply malformed", zap.String("key", key), zap.Any("reply", reply))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(verdict.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if verdict.allowed {
				return next(c)
			}

			wait := int(math.Ceil(float64(verdict.retryMs) / 1000))
			h.Set("Retry-After", strconv.Itoa(wait))
			log.Info("rate limited", zap.String("key", key), zap.Int("retry_after", wait))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":      "rate_limited",
				"message":    "too many requests, retry later",
				"retryAfter": wait,
			})
		}
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

// rateKeyParts lists which request attributes identify a client under each
// RATE_LIMIT_KEY_STRATEGY.  Unknown strategies use all three.
var rateKeyParts = map[string][]string{
	"ip":         {"ip"},
	"user":       {"user"},
	"route":      {"route"},
	"ip_user":    {"ip", "user"},
	"ip_route":   {"ip", "route"},
	"user_route": {"user", "route"},
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	attrs := map[string]string{
		"ip":    c.RealIP(),
		"user":  currentUserID(c),
		"route": c.Request().Method + " " + c.Path(),
	}
	if attrs["ip"] == "" {
		attrs["ip"] = "unknown"
	}

	names, ok := rateKeyParts[strings.ToLower(cfg.KeyStrategy)]
	if !ok {
		names = []string{"ip", "user", "route"}
	}
	parts := []string{cfg.Prefix}
	for _, n := range names {
		parts = append(parts, n, attrs[n])
	}
	return strings.Join(parts, ":")
}
