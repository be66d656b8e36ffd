package models

import "time"

// UserSession tracks signed-in JWT sessions for device/session management.
type UserSession struct {
	Base
	UserID    string     `json:"user_id"    gorm:"type:char(36);index;not null"`
	IP        string     `json:"ip"         gorm:"size:64"`
	UA        string     `json:"ua"         gorm:"type:text"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"index;not null"`
	RevokedAt *time.Time `json:"revoked_at" gorm:"index"`
}

func (UserSession) TableName() string { return "user_sessions" }

// PasswordResetToken is a one-time password reset grant. Only the sha256 of the token is stored.
type PasswordResetToken struct {
	Base
	Email     string    `json:"email"      gorm:"size:191;index;not null"`
	TokenHash string    `json:"-"          gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

func (PasswordResetToken) TableName() string { return "password_reset_tokens" }

// EmailVerificationToken confirms ownership of a user's email address.
type EmailVerificationToken struct {
	Base
	UserID    string    `json:"user_id"    gorm:"type:char(36);index;not null"`
	TokenHash string    `json:"-"          gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

func (EmailVerificationToken) TableName() string { return "email_verification_tokens" }
