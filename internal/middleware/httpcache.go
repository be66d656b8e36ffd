package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redispkg "github.com/inkwell-cms/inkwell/internal/pkg/redis"
	"go.uber.org/zap"
)

const (
	APICachePrefix        = "inkwell:api_cache:"
	defaultHTTPCacheTTL   = 15 * time.Second
	defaultHTTPCacheBytes = 1 << 20
)

// HTTPCacheOptions configures the anonymous GET response cache.
type HTTPCacheOptions struct {
	TTL          time.Duration
	MaxBodyBytes int
	SkipPaths    []string
}

type cachedHTTPResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	BodyBase64  string `json:"body_base64"`
}

type cacheBodyWriter struct {
	gin.ResponseWriter
	body         []byte
	maxBodyBytes int
	overflow     bool
}

func (w *cacheBodyWriter) Write(data []byte) (int, error) {
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheBodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheBodyWriter) capture(data []byte) {
	if w.overflow || len(data) == 0 {
		return
	}
	if len(w.body)+len(data) > w.maxBodyBytes {
		w.overflow = true
		w.body = nil
		return
	}
	w.body = append(w.body, data...)
}

// HTTPCache serves repeated anonymous GETs of public endpoints from redis.
// Authenticated requests bypass the cache and are marked private.
func HTTPCache(rdb *redispkg.Client, opts HTTPCacheOptions) gin.HandlerFunc {
	if opts.TTL <= 0 {
		opts.TTL = defaultHTTPCacheTTL
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultHTTPCacheBytes
	}
	maxAge := "max-age=" + strconv.Itoa(int(opts.TTL/time.Second))

	return func(c *gin.Context) {
		if !rdb.Enabled() || c.Request.Method != http.MethodGet || shouldSkipCachePath(c.Request.URL.Path, opts.SkipPaths) {
			c.Next()
			return
		}
		if IsAuthenticated(c) {
			c.Header("Cache-Control", "private, no-store")
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := APICachePrefix + c.Request.URL.RequestURI()
		if payload, ok := readCachedResponse(ctx, rdb, key); ok {
			c.Header("X-Cache", "hit")
			c.Header("Cache-Control", "public, "+maxAge)
			c.Data(payload.Status, payload.ContentType, payload.body())
			c.Abort()
			return
		}

		buffer := &cacheBodyWriter{ResponseWriter: c.Writer, maxBodyBytes: opts.MaxBodyBytes}
		c.Writer = buffer
		c.Header("X-Cache", "miss")
		c.Next()

		status := buffer.Status()
		if status != http.StatusOK || buffer.overflow || len(buffer.body) == 0 || c.GetBool(ContextKeyNoCache) {
			return
		}
		raw, err := json.Marshal(cachedHTTPResponse{
			Status:      status,
			ContentType: buffer.Header().Get("Content-Type"),
			BodyBase64:  base64.StdEncoding.EncodeToString(buffer.body),
		})
		if err != nil {
			return
		}
		_ = rdb.Set(ctx, key, raw, opts.TTL)
	}
}

// ContextKeyNoCache marks a response that must not be stored, e.g. one that
// counted a view.
const ContextKeyNoCache = "http_cache_skip"

// PurgeOnWrite clears the response cache after every successful write below it.
func PurgeOnWrite(rdb *redispkg.Client, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			return
		}
		if status := c.Writer.Status(); status < 200 || status >= 300 {
			return
		}
		if _, err := PurgeHTTPCache(c.Request.Context(), rdb); err != nil {
			log.Warn("purge http cache failed", zap.Error(err))
		}
	}
}

// PurgeHTTPCache deletes every cached response and returns how many were removed.
func PurgeHTTPCache(ctx context.Context, rdb *redispkg.Client) (int64, error) {
	if !rdb.Enabled() {
		return 0, nil
	}
	var (
		cursor  uint64
		deleted int64
	)
	raw := rdb.Raw()
	for {
		keys, next, err := raw.Scan(ctx, cursor, APICachePrefix+"*", 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := raw.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func readCachedResponse(ctx context.Context, rdb *redispkg.Client, key string) (cachedHTTPResponse, bool) {
	raw, err := rdb.Get(ctx, key)
	if err != nil || raw == "" {
		return cachedHTTPResponse{}, false
	}
	var payload cachedHTTPResponse
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return cachedHTTPResponse{}, false
	}
	if payload.Status <= 0 {
		payload.Status = http.StatusOK
	}
	if payload.ContentType == "" {
		payload.ContentType = "application/json; charset=utf-8"
	}
	return payload, true
}

func (p cachedHTTPResponse) body() []byte {
	b, _ := base64.StdEncoding.DecodeString(p.BodyBase64)
	return b
}

func shouldSkipCachePath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		p := strings.TrimSpace(pattern)
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "*") {
			if strings.HasPrefix(path, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}
