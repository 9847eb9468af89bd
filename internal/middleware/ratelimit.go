package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/siports-api/pkg/errors"
	"github.com/noah-isme/siports-api/pkg/response"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

type windowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisWindow counts hits per key in a fixed window shared by every API instance.
type RedisWindow struct {
	rdb redis.Scripter
}

// NewRedisWindow wraps a redis client. A nil client yields nil.
func NewRedisWindow(rdb redis.Scripter) *RedisWindow {
	if rdb == nil {
		return nil
	}
	return &RedisWindow{rdb: rdb}
}

// Incr bumps the counter for key, starting a new window on the first hit.
func (w *RedisWindow) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = time.Minute.Milliseconds()
	}
	res, err := fixedWindowScript.Run(ctx, w.rdb, []string{key}, ms).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected rate limit script result %T", res)
	}
}

// RateLimitConfig bounds requests per caller.
type RateLimitConfig struct {
	Prefix   string
	Requests int
	Window   time.Duration
}

// RateLimit rejects callers exceeding cfg.Requests within cfg.Window with RATE_LIMITED.
// Authenticated callers are keyed by user id, anonymous ones by client ip.
// Counter failures let the request through.
func RateLimit(counter windowCounter, cfg RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Requests <= 0 {
		cfg.Requests = 30
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "rl"
	}
	disabled := counter == nil
	if w, ok := counter.(*RedisWindow); ok && w == nil {
		disabled = true
	}

	return func(c *gin.Context) {
		if disabled {
			c.Next()
			return
		}
		key := prefix + ":" + callerKey(c)
		count, err := counter.Incr(c.Request.Context(), key, cfg.Window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(cfg.Requests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if count > int64(cfg.Requests) {
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}

func callerKey(c *gin.Context) string {
	if claims := currentClaims(c); claims != nil && claims.UserID != "" {
		return "user:" + claims.UserID
	}
	return "ip:" + c.ClientIP()
}
