package jwt

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const testSecret = "this-is-a-test-secret-with-32-bytes!"

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(testSecret, "inkwell")
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewManager("short", "inkwell"); err == nil {
		t.Error("NewManager() expected error for short secret")
	}
}

func TestSignAndParse(t *testing.T) {
	m := newTestManager(t)
	token, err := m.Sign("user-1", "sess-1", time.Hour)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != "user-1" || claims.SessionID != "sess-1" || claims.Issuer != "inkwell" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	m := newTestManager(t)
	other, _ := NewManager("another-secret-that-is-32-bytes-long", "inkwell")

	expired, _ := m.Sign("user-1", "s", -time.Minute)
	foreign, _ := other.Sign("user-1", "s", time.Hour)
	none := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, Claims{UserID: "user-1"})
	unsigned, _ := none.SignedString(jwtlib.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
