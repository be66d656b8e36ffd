package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/jwt"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
)

const (
	ContextKeyUserID    = "user_id"
	ContextKeySID       = "session_id"
	ContextKeyUser      = "user"
	ContextKeyViaCookie = "auth_via_cookie"
)

// TokenVerifier checks a session token. *session.Store implements it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*jwt.Claims, error)
	Touch(ctx context.Context, userID, sessionID string)
}

// UserFinder loads the account behind a session.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.UserModel, error)
}

var errAccountInactive = errors.New("account is not active")

// Auth returns a middleware that requires a valid session token from the
// Authorization header or the session cookie.
func Auth(sessions TokenVerifier, users UserFinder, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, viaCookie := extractToken(c, cookieName)
		user, claims, err := authenticate(c.Request.Context(), sessions, users, token)
		if err != nil {
			if errors.Is(err, errAccountInactive) {
				response.UnauthorizedMsg(c, err.Error())
				return
			}
			response.Unauthorized(c)
			return
		}
		setIdentity(c, user, claims, viaCookie)
		sessions.Touch(c.Request.Context(), claims.UserID, claims.SessionID)
		c.Next()
	}
}

// OptionalAuth sets the identity if a valid token is present, but does not block the request.
func OptionalAuth(sessions TokenVerifier, users UserFinder, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, viaCookie := extractToken(c, cookieName)
		if token != "" {
			if user, claims, err := authenticate(c.Request.Context(), sessions, users, token); err == nil {
				setIdentity(c, user, claims, viaCookie)
			}
		}
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated user has at least min.
func RequireRole(min string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Unauthorized(c)
			return
		}
		if !user.HasRole(min) {
			response.Forbidden(c)
			return
		}
		c.Next()
	}
}

func authenticate(ctx context.Context, sessions TokenVerifier, users UserFinder, token string) (*models.UserModel, *jwt.Claims, error) {
	if token == "" {
		return nil, nil, errors.New("token is required")
	}
	claims, err := sessions.Verify(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	user, err := users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user.Status != models.UserActive {
		return nil, nil, errAccountInactive
	}
	return user, claims, nil
}

func setIdentity(c *gin.Context, user *models.UserModel, claims *jwt.Claims, viaCookie bool) {
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeySID, claims.SessionID)
	c.Set(ContextKeyViaCookie, viaCookie)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *models.UserModel {
	v, _ := c.Get(ContextKeyUser)
	user, _ := v.(*models.UserModel)
	return user
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// CurrentSessionID extracts the authenticated session ID from context.
func CurrentSessionID(c *gin.Context) string {
	v, _ := c.Get(ContextKeySID)
	id, _ := v.(string)
	return id
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

// ViaCookie reports whether the request authenticated with the session cookie.
func ViaCookie(c *gin.Context) bool {
	return c.GetBool(ContextKeyViaCookie)
}

// extractToken prefers the Authorization header and falls back to the session cookie.
func extractToken(c *gin.Context, cookieName string) (string, bool) {
	if token := NormalizeToken(c.GetHeader("Authorization")); token != "" {
		return token, false
	}
	if cookieName == "" {
		return "", false
	}
	raw, err := c.Cookie(cookieName)
	if err != nil {
		return "", false
	}
	token := NormalizeToken(raw)
	return token, token != ""
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
