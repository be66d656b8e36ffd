package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/config"
)

func TestParseTimezoneLocation(t *testing.T) {
	loc, err := parseTimezoneLocation("+05:30")
	if err != nil {
		t.Fatalf("offset: %v", err)
	}
	if _, off := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone(); off != 5*3600+30*60 {
		t.Fatalf("offset = %d", off)
	}
	if _, err := parseTimezoneLocation("UTC"); err != nil {
		t.Fatalf("UTC: %v", err)
	}
	if _, err := parseTimezoneLocation("Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestHumanizeDuration(t *testing.T) {
	cases := map[time.Duration]string{
		42*time.Second + 300*time.Millisecond: "42s",
		5*time.Minute + 10*time.Second:        "5m0s",
		3*time.Hour + 20*time.Minute:          "3h0m0s",
		48 * time.Hour:                        "2d",
		50*time.Hour + 15*time.Minute:         "2d2h0m0s",
	}
	for in, want := range cases {
		if got := humanizeDuration(in); got != want {
			t.Errorf("humanizeDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchOriginPattern(t *testing.T) {
	cases := []struct {
		pattern, host string
		want          bool
	}{
		{"example.com", "example.com", true},
		{"*.example.com", "admin.example.com", true},
		{"*.example.com", "example.org", false},
		{"localhost:*", "localhost:5173", true},
		{"localhost:*", "localhost.evil.com", false},
	}
	for _, tc := range cases {
		if got := matchOriginPattern(tc.pattern, tc.host); got != tc.want {
			t.Errorf("matchOriginPattern(%q, %q) = %v", tc.pattern, tc.host, got)
		}
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(newCORS(&config.AppConfig{Env: "production", AllowedOrigins: []string{"https://*.example.com"}}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for origin, allowed := range map[string]bool{
		"https://admin.example.com": true,
		"https://evil.com":          false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		got := w.Header().Get("Access-Control-Allow-Origin") == origin
		if got != allowed {
			t.Errorf("origin %s: allowed = %v, want %v (status %d)", origin, got, allowed, w.Code)
		}
	}
}
