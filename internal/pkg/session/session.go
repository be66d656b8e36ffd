package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
	jwtpkg "github.com/inkwell-cms/inkwell/internal/pkg/jwt"
	"gorm.io/gorm"
)

const DefaultTTL = 30 * 24 * time.Hour

// ErrSessionInactive is returned when a token's session was revoked or expired.
var ErrSessionInactive = errors.New("session is no longer active")

// Store binds JWTs to rows in user_sessions so tokens can be revoked.
type Store struct {
	db  *gorm.DB
	jwt *jwtpkg.Manager
	ttl time.Duration
}

func NewStore(db *gorm.DB, jwt *jwtpkg.Manager, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, jwt: jwt, ttl: ttl}
}

// TTL returns the lifetime of issued sessions.
func (s *Store) TTL() time.Duration { return s.ttl }

// Issue creates a DB session and signs a JWT bound to that session.
func (s *Store) Issue(ctx context.Context, userID, ip, ua string) (string, *models.UserSession, error) {
	sess := &models.UserSession{
		UserID:    userID,
		IP:        strings.TrimSpace(ip),
		UA:        strings.TrimSpace(ua),
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return "", nil, err
	}

	token, err := s.jwt.Sign(userID, sess.ID, s.ttl)
	if err != nil {
		_ = s.db.WithContext(ctx).Delete(sess).Error
		return "", nil, err
	}
	return token, sess, nil
}

// Verify parses token and checks that its session is still active.
func (s *Store) Verify(ctx context.Context, token string) (*jwtpkg.Claims, error) {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, err
	}
	active, err := s.IsActive(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrSessionInactive
	}
	return claims, nil
}

func (s *Store) IsActive(ctx context.Context, userID, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?", sessionID, userID, time.Now().UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Touch bumps updated_at so ListActive reflects recent use.
func (s *Store) Touch(ctx context.Context, userID, sessionID string) {
	if strings.TrimSpace(sessionID) == "" {
		return
	}
	_ = s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", sessionID, userID).
		Update("updated_at", time.Now().UTC()).Error
}

func (s *Store) ListActive(ctx context.Context, userID string) ([]models.UserSession, error) {
	var sessions []models.UserSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now().UTC()).
		Order("updated_at DESC, created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (s *Store) Revoke(ctx context.Context, userID, sessionID string) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", sessionID, userID).
		Update("revoked_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RevokeAllExcept revokes every session of userID other than keepSessionID (may be empty).
func (s *Store) RevokeAllExcept(ctx context.Context, userID, keepSessionID string) error {
	now := time.Now().UTC()
	query := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID)
	if strings.TrimSpace(keepSessionID) != "" {
		query = query.Where("id <> ?", keepSessionID)
	}
	return query.Update("revoked_at", &now).Error
}

// PurgeExpired deletes sessions that expired or were revoked before cutoff.
func (s *Store) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", cutoff.UTC(), cutoff.UTC()).
		Delete(&models.UserSession{})
	return res.RowsAffected, res.Error
}
