package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redispkg "github.com/inkwell-cms/inkwell/internal/pkg/redis"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	idempotenceTTL    = 60 * time.Second
	maxIdempotencyKey = 128
)

// Idempotence rejects a repeated POST that carries an Idempotency-Key the
// same user already sent within the last minute. Requests without the header
// pass through.
func Idempotence(rdb *redispkg.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || !rdb.Enabled() {
			c.Next()
			return
		}
		key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKey {
			response.BadRequest(c, IdempotencyHeader+" is too long")
			return
		}

		ctx := c.Request.Context()
		redisKey := "inkwell:idempotence:" + CurrentUserID(c) + ":" + c.FullPath() + ":" + key
		fresh, err := rdb.SetNX(ctx, redisKey, "0", idempotenceTTL)
		if err != nil {
			c.Next()
			return
		}
		if !fresh {
			msg := "this request was already completed"
			if val, _ := rdb.Get(ctx, redisKey); val == "0" {
				msg = "this request is still being processed"
			}
			response.Conflict(c, msg)
			return
		}

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			_ = rdb.Set(ctx, redisKey, "1", idempotenceTTL)
		} else {
			_ = rdb.Del(ctx, redisKey)
		}
	}
}
