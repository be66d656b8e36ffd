package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	redispkg "github.com/inkwell-cms/inkwell/internal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*redispkg.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redispkg.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})), mr
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rdb, _ := setupTestRedis(t)

	router := gin.New()
	router.Use(RateLimit(rdb, RateLimitOptions{Name: "login", Max: 3, Window: time.Minute}, zap.NewNop()))
	router.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 3; i++ {
		if w := send("10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}
	w := send("10.0.0.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("4th request status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", w.Header().Get("Retry-After"))
	}
	if w := send("10.0.0.2"); w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
}

func TestRateLimitWithoutRedisFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimit(nil, RateLimitOptions{Max: 1, Window: time.Second}, zap.NewNop()))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	}
}

func TestIdempotence(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rdb, _ := setupTestRedis(t)

	calls := 0
	router := gin.New()
	router.POST("/posts", Idempotence(rdb), func(c *gin.Context) {
		calls++
		c.Status(http.StatusCreated)
	})

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/posts", nil)
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("abc"); code != http.StatusCreated {
		t.Fatalf("first = %d, want 201", code)
	}
	if code := send("abc"); code != http.StatusConflict {
		t.Errorf("replay = %d, want 409", code)
	}
	if code := send(""); code != http.StatusCreated {
		t.Errorf("no key = %d, want 201", code)
	}
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
}

func TestHTTPCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rdb, _ := setupTestRedis(t)

	hits := 0
	router := gin.New()
	router.Use(HTTPCache(rdb, HTTPCacheOptions{TTL: time.Minute}))
	router.GET("/posts", func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"n": hits})
	})
	router.POST("/posts", PurgeOnWrite(rdb, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts", nil))
		return w
	}

	first := get()
	second := get()
	if hits != 1 {
		t.Fatalf("handler hits = %d, want 1", hits)
	}
	if second.Header().Get("X-Cache") != "hit" || second.Body.String() != first.Body.String() {
		t.Errorf("second response not served from cache: %q %q", second.Header().Get("X-Cache"), second.Body.String())
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts", nil))
	get()
	if hits != 2 {
		t.Errorf("handler hits after purge = %d, want 2", hits)
	}
}
