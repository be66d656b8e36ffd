package app

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/config"
)

// newCORS allows the configured origins. Entries may use "*.example.com" or
// "localhost:*" wildcards; an empty list allows any origin in development
// and none otherwise.
func newCORS(cfg *config.AppConfig) gin.HandlerFunc {
	patterns := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			patterns = append(patterns, extractOriginHost(o))
		}
	}
	dev := cfg.IsDev()

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if len(patterns) == 0 {
				return dev
			}
			host := extractOriginHost(origin)
			for _, p := range patterns {
				if matchOriginPattern(p, host) {
					return true
				}
			}
			return false
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"X-Cache", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// extractOriginHost returns the "host[:port]" portion of an origin URL.
func extractOriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

// matchOriginPattern reports whether host matches the given wildcard pattern.
func matchOriginPattern(pattern, host string) bool {
	if pattern == host {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}
	if strings.HasSuffix(pattern, ":*") {
		return strings.HasPrefix(host, pattern[:len(pattern)-1])
	}
	return false
}
