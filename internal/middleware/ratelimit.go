package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redispkg "github.com/inkwell-cms/inkwell/internal/pkg/redis"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"go.uber.org/zap"
)

// RateLimitOptions configures a fixed-window limiter.
type RateLimitOptions struct {
	Name              string
	Max               int64
	Window            time.Duration
	SkipAuthenticated bool
}

// RateLimit returns a middleware allowing Max requests per client IP per
// Window. It fails open when redis is unavailable.
func RateLimit(rdb *redispkg.Client, opts RateLimitOptions, log *zap.Logger) gin.HandlerFunc {
	if opts.Window <= 0 {
		opts.Window = time.Second
	}
	if opts.Name == "" {
		opts.Name = "global"
	}
	retryAfter := strconv.Itoa(int((opts.Window + time.Second - 1) / time.Second))

	return func(c *gin.Context) {
		if !rdb.Enabled() || opts.Max <= 0 || (opts.SkipAuthenticated && IsAuthenticated(c)) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		window := time.Now().UnixNano() / int64(opts.Window)
		key := fmt.Sprintf("inkwell:rate_limit:%s:%s:%d", opts.Name, ip, window)
		count, err := rdb.IncrWindow(c.Request.Context(), key, opts.Window+time.Second)
		if err != nil {
			log.Warn("rate limit check failed", zap.String("limiter", opts.Name), zap.Error(err))
			c.Next()
			return
		}

		if count > opts.Max {
			c.Header("Retry-After", retryAfter)
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
