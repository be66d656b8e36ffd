package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
)

// CSRFConfig holds configuration for CSRF protection middleware.
type CSRFConfig struct {
	// AllowedOrigins should match the CORS allowed origins plus the site URL.
	AllowedOrigins []string
	// CookieOnly limits the check to requests authenticated by the session
	// cookie. Bearer-token clients are not exposed to CSRF.
	CookieOnly bool
}

// CSRF returns middleware that validates Origin/Referer headers on
// state-changing requests.
func CSRF(config CSRFConfig) gin.HandlerFunc {
	allowedSet := make(map[string]bool)
	for _, origin := range config.AllowedOrigins {
		normalized := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
		if normalized != "" {
			allowedSet[normalized] = true
		}
	}

	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			c.Next()
			return
		}
		if config.CookieOnly && !ViaCookie(c) {
			c.Next()
			return
		}

		if origin := c.GetHeader("Origin"); origin != "" {
			if !isAllowedOrigin(origin, allowedSet) {
				response.ForbiddenMsg(c, "CSRF validation failed: invalid origin")
				return
			}
			c.Next()
			return
		}

		if referer := c.GetHeader("Referer"); referer != "" {
			if !isAllowedOrigin(extractOrigin(referer), allowedSet) {
				response.ForbiddenMsg(c, "CSRF validation failed: invalid referer")
				return
			}
			c.Next()
			return
		}

		response.ForbiddenMsg(c, "CSRF validation failed: missing origin")
	}
}

func isAllowedOrigin(origin string, allowedSet map[string]bool) bool {
	normalized := strings.TrimSuffix(strings.ToLower(origin), "/")
	return allowedSet[normalized]
}

// extractOrigin returns scheme://host[:port] of rawURL.
func extractOrigin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
