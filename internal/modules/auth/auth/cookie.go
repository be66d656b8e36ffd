package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/config"
)

// CookieHelper sets and clears the browser session cookie.
type CookieHelper struct {
	name   string
	domain string
	secure bool
}

func NewCookieHelper(cfg config.SecurityConfig) *CookieHelper {
	return &CookieHelper{name: cfg.CookieName, domain: cfg.CookieDomain, secure: cfg.CookieSecure}
}

func (h *CookieHelper) Name() string { return h.name }

// Set stores token until expires.
func (h *CookieHelper) Set(c *gin.Context, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	h.write(c, token, maxAge)
}

func (h *CookieHelper) Clear(c *gin.Context) {
	h.write(c, "", -1)
}

func (h *CookieHelper) write(c *gin.Context, value string, maxAge int) {
	if h.name == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.name, value, maxAge, "/", h.domain, h.secure, true)
}
