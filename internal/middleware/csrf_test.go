package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCSRF(t *testing.T) {
	gin.SetMode(gin.TestMode)

	config := CSRFConfig{
		AllowedOrigins: []string{
			"https://cms.example.com",
			"http://localhost:5173/",
		},
		CookieOnly: true,
	}

	tests := []struct {
		name       string
		method     string
		viaCookie  bool
		origin     string
		referer    string
		wantStatus int
	}{
		{
			name:       "GET passes without headers",
			method:     http.MethodGet,
			viaCookie:  true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "OPTIONS passes without headers",
			method:     http.MethodOptions,
			viaCookie:  true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "bearer POST skips the check",
			method:     http.MethodPost,
			viaCookie:  false,
			origin:     "https://evil.example",
			wantStatus: http.StatusOK,
		},
		{
			name:       "cookie POST with valid origin passes",
			method:     http.MethodPost,
			viaCookie:  true,
			origin:     "https://cms.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "cookie POST with configured trailing slash origin passes",
			method:     http.MethodPost,
			viaCookie:  true,
			origin:     "http://localhost:5173",
			wantStatus: http.StatusOK,
		},
		{
			name:       "cookie POST origin is case insensitive",
			method:     http.MethodPost,
			viaCookie:  true,
			origin:     "HTTPS://CMS.EXAMPLE.COM",
			wantStatus: http.StatusOK,
		},
		{
			name:       "cookie POST with foreign origin blocked",
			method:     http.MethodPost,
			viaCookie:  true,
			origin:     "https://evil.example",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "cookie DELETE with different port blocked",
			method:     http.MethodDelete,
			viaCookie:  true,
			origin:     "http://localhost:9999",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "cookie PUT with valid referer passes",
			method:     http.MethodPut,
			viaCookie:  true,
			referer:    "https://cms.example.com/admin/posts/1",
			wantStatus: http.StatusOK,
		},
		{
			name:       "cookie PUT with foreign referer blocked",
			method:     http.MethodPut,
			viaCookie:  true,
			referer:    "https://evil.example/attack",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "cookie POST with Origin null blocked",
			method:     http.MethodPost,
			viaCookie:  true,
			origin:     "null",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "cookie POST without origin or referer blocked",
			method:     http.MethodPost,
			viaCookie:  true,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(func(c *gin.Context) {
				c.Set(ContextKeyViaCookie, tt.viaCookie)
				c.Next()
			})
			router.Use(CSRF(config))
			router.Handle(tt.method, "/test", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestExtractOrigin(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://cms.example.com/a/b?c=d", "https://cms.example.com"},
		{"http://localhost:8080/", "http://localhost:8080"},
		{"not a url", ""},
		{"/relative/path", ""},
	}
	for _, tt := range tests {
		if got := extractOrigin(tt.raw); got != tt.want {
			t.Errorf("extractOrigin(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
