package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/middleware"
	"github.com/inkwell-cms/inkwell/internal/models"
)

const siteOrigin = "https://blog.example.com"

func newRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(f.svc, NewCookieHelper(f.security))
	pass := func(c *gin.Context) { c.Next() }
	csrf := middleware.CSRF(middleware.CSRFConfig{AllowedOrigins: []string{siteOrigin}, CookieOnly: true})
	h.RegisterRoutes(r.Group("/api/v1"), middleware.Auth(f.sessions, f.users, f.security.CookieName), csrf, pass)
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", siteOrigin)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerLoginSetsCookieAndLogoutClears(t *testing.T) {
	f := setup(t)
	f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)
	r := newRouter(f)

	w := doJSON(r, http.MethodPost, "/api/v1/auth/login", LoginDTO{Login: "alice", Password: "correct-horse-1", Remember: true})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	var body loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Token == "" || body.User == nil || body.User.Username != "alice" {
		t.Fatalf("login body = %s", w.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == f.security.CookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != body.Token || !cookie.HttpOnly {
		t.Fatalf("session cookie = %+v", cookie)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/logout", nil, cookie)
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, body = %s", w.Code, w.Body.String())
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == f.security.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout did not clear the session cookie")
	}

	w = doJSON(r, http.MethodGet, "/api/v1/auth/sessions", nil, cookie)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("sessions after logout status = %d, want 401", w.Code)
	}
}

func TestHandlerCookieWritesCheckOrigin(t *testing.T) {
	f := setup(t)
	f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)
	r := newRouter(f)

	w := doJSON(r, http.MethodPost, "/api/v1/auth/login", LoginDTO{Login: "alice", Password: "correct-horse-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	var body loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	cookie := &http.Cookie{Name: f.security.CookieName, Value: body.Token}

	send := func(method, path, origin string, viaCookie bool) int {
		req := httptest.NewRequest(method, path, nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		if viaCookie {
			req.AddCookie(cookie)
		} else {
			req.Header.Set("Authorization", "Bearer "+body.Token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	tests := []struct {
		name      string
		method    string
		path      string
		origin    string
		viaCookie bool
		status    int
	}{
		{"cookie revoke from foreign origin", http.MethodDelete, "/api/v1/auth/sessions", "https://evil.example.com", true, http.StatusForbidden},
		{"cookie resend without origin", http.MethodPost, "/api/v1/auth/verify-email/resend", "", true, http.StatusForbidden},
		{"cookie logout from foreign origin", http.MethodPost, "/api/v1/auth/logout", "https://evil.example.com", true, http.StatusForbidden},
		{"cookie session list is a read", http.MethodGet, "/api/v1/auth/sessions", "", true, http.StatusOK},
		{"bearer logout skips the check", http.MethodPost, "/api/v1/auth/logout", "", false, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := send(tt.method, tt.path, tt.origin, tt.viaCookie); got != tt.status {
				t.Errorf("status = %d, want %d", got, tt.status)
			}
		})
	}
}

func TestHandlerStatusCodes(t *testing.T) {
	f := setup(t)
	f.addUser(t, "alice", "correct-horse-1", models.RoleAuthor, models.UserActive)
	r := newRouter(f)

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"missing fields", "/api/v1/auth/login", map[string]string{}, http.StatusBadRequest},
		{"bad credentials", "/api/v1/auth/login", LoginDTO{Login: "alice", Password: "wrong-horse-1"}, http.StatusUnauthorized},
		{"duplicate registration", "/api/v1/auth/register", RegisterDTO{Username: "alice", Email: "a2@example.com", Password: "correct-horse-1"}, http.StatusConflict},
		{"forgot unknown", "/api/v1/auth/password/forgot", ForgotPasswordDTO{Email: "nobody@example.com"}, http.StatusAccepted},
		{"reset bad token", "/api/v1/auth/password/reset", ResetPasswordDTO{Token: "nope", Password: "brand-new-pass-2"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doJSON(r, http.MethodPost, tt.path, tt.body); w.Code != tt.status {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestHandlerVerifyEmailByQuery(t *testing.T) {
	f := setup(t)
	r := newRouter(f)
	f.addUser(t, "owner", "correct-horse-1", models.RoleAdmin, models.UserActive)

	w := doJSON(r, http.MethodPost, "/api/v1/auth/register", RegisterDTO{Username: "reader", Email: "reader@example.com", Password: "correct-horse-1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}
	w = doJSON(r, http.MethodGet, "/api/v1/auth/verify-email?token="+f.mail.lastToken(t), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body = %s", w.Code, w.Body.String())
	}
	var body userResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if !body.EmailVerified {
		t.Errorf("email_verified = false")
	}
}
