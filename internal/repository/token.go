package repository

import (
	"context"
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
	"gorm.io/gorm"
)

// TokenRepository stores password reset and email verification tokens by hash.
type TokenRepository interface {
	CreateReset(ctx context.Context, token *models.PasswordResetToken) error
	FindValidReset(ctx context.Context, hash string, now time.Time) (*models.PasswordResetToken, error)
	ConsumeReset(ctx context.Context, hash string, now time.Time) (*models.PasswordResetToken, error)
	DeleteResetsFor(ctx context.Context, email string) error
	CreateVerification(ctx context.Context, token *models.EmailVerificationToken) error
	FindValidVerification(ctx context.Context, hash string, now time.Time) (*models.EmailVerificationToken, error)
	DeleteVerificationsFor(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) CreateReset(ctx context.Context, token *models.PasswordResetToken) error {
	return wrap(r.db.WithContext(ctx).Create(token).Error, "create password reset token")
}

func (r *tokenRepository) FindValidReset(ctx context.Context, hash string, now time.Time) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", hash, now).
		First(&token).Error
	if err != nil {
		return nil, wrap(err, "find password reset token")
	}
	return &token, nil
}

// ConsumeReset finds a valid token and deletes it in one transaction, so a
// token can be redeemed at most once even under concurrent requests.
func (r *tokenRepository) ConsumeReset(ctx context.Context, hash string, now time.Time) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_hash = ? AND expires_at > ?", hash, now).First(&token).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.PasswordResetToken{}, "id = ?", token.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, wrap(err, "consume password reset token")
	}
	return &token, nil
}

func (r *tokenRepository) DeleteResetsFor(ctx context.Context, email string) error {
	err := r.db.WithContext(ctx).Where("email = ?", email).Delete(&models.PasswordResetToken{}).Error
	return wrap(err, "delete password reset tokens")
}

func (r *tokenRepository) CreateVerification(ctx context.Context, token *models.EmailVerificationToken) error {
	return wrap(r.db.WithContext(ctx).Create(token).Error, "create email verification token")
}

func (r *tokenRepository) FindValidVerification(ctx context.Context, hash string, now time.Time) (*models.EmailVerificationToken, error) {
	var token models.EmailVerificationToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", hash, now).
		First(&token).Error
	if err != nil {
		return nil, wrap(err, "find email verification token")
	}
	return &token, nil
}

func (r *tokenRepository) DeleteVerificationsFor(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.EmailVerificationToken{}).Error
	return wrap(err, "delete email verification tokens")
}

// DeleteExpired purges both token kinds that expired at or before now.
func (r *tokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("expires_at <= ?", now).Delete(&models.PasswordResetToken{})
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected
		res = tx.Where("expires_at <= ?", now).Delete(&models.EmailVerificationToken{})
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, wrap(err, "delete expired tokens")
	}
	return total, nil
}
