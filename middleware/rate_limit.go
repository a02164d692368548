package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/chunkup/config"
	"github.com/cppla/chunkup/utils"
)

// RateLimitMiddleware enforces a per-IP fixed window counter in Redis so the
// limit holds across instances. When Redis is unreachable it degrades to an
// in-process token bucket rather than letting traffic through unchecked.
func RateLimitMiddleware() gin.HandlerFunc {
	limit := config.Get().RateLimitPerMinute
	if limit < 1 {
		limit = 1
	}

	return func(ctx *gin.Context) {
		if !allowRequest(ctx.ClientIP(), limit) {
			utils.Error(ctx, 429, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func allowRequest(ip string, limit int) bool {
	rc := utils.GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := "rate_limit:" + ip
	current, err := rc.Incr(ctx, key).Result()
	if err != nil {
		return fallbackAllow(ip, limit)
	}
	if current == 1 {
		// First hit opens a fresh one minute window
		_ = rc.Expire(ctx, key, time.Minute).Err()
	}
	return current <= int64(limit)
}

// In-process fallback, one bucket per IP with idle eviction.
type fallbackLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	fallbackLimiters = map[string]*fallbackLimiter{}
	fallbackMu       sync.Mutex
)

func fallbackAllow(ip string, limit int) bool {
	fallbackMu.Lock()
	defer fallbackMu.Unlock()

	now := time.Now()
	for key, fl := range fallbackLimiters {
		if now.Sub(fl.lastSeen) > 5*time.Minute {
			delete(fallbackLimiters, key)
		}
	}

	fl, ok := fallbackLimiters[ip]
	if !ok {
		fl = &fallbackLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(limit)), limit),
		}
		fallbackLimiters[ip] = fl
	}
	fl.lastSeen = now
	return fl.limiter.Allow()
}
