package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/auth/user"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/mail"
	"github.com/inkwell-cms/inkwell/internal/pkg/password"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionStore issues and revokes signed-in sessions.
type SessionStore interface {
	TTL() time.Duration
	Issue(ctx context.Context, userID, ip, ua string) (string, *models.UserSession, error)
	ListActive(ctx context.Context, userID string) ([]models.UserSession, error)
	Revoke(ctx context.Context, userID, sessionID string) error
	RevokeAllExcept(ctx context.Context, userID, keepSessionID string) error
}

type Service struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	sessions SessionStore
	mailer   mail.Mailer
	security config.SecurityConfig
	site     config.SiteConfig
	logger   *zap.Logger
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("AuthService")
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	sessions SessionStore,
	mailer mail.Mailer,
	security config.SecurityConfig,
	site config.SiteConfig,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		mailer:   mailer,
		security: security,
		site:     site,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login checks credentials and opens a session. Repeated failures lock the
// account for the configured lockout period.
func (s *Service) Login(ctx context.Context, login, plain, ip, ua string) (*LoginResult, error) {
	now := s.now()
	u, err := s.users.FindByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, repository.ErrNotFound) {
		password.CompareDummy(plain)
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.IsLocked(now) {
		return nil, apperr.ErrAccountLocked
	}

	if err := password.Compare(u.Password, plain); err != nil {
		locked, err := s.users.RecordFailedLogin(ctx, u.ID, s.security.MaxLoginAttempts, s.lockout(), now)
		if err != nil {
			return nil, err
		}
		if locked.IsLocked(now) {
			s.logger.Warn("account locked after failed logins",
				zap.String("user_id", u.ID), zap.String("ip", ip), zap.Int("attempts", locked.FailedLoginAttempts))
			return nil, apperr.ErrAccountLocked
		}
		return nil, apperr.ErrInvalidCredentials
	}

	if u.Status != models.UserActive {
		return nil, apperr.ErrAccountDisabled
	}
	if s.security.RequireEmailVerification && u.EmailVerifiedAt == nil {
		return nil, apperr.ErrEmailNotVerified
	}

	if err := s.users.ResetFailedLogins(ctx, u.ID, ip, now); err != nil {
		return nil, err
	}
	token, sess, err := s.sessions.Issue(ctx, u.ID, ip, ua)
	if err != nil {
		return nil, err
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
	u.LastLoginIP = ip
	s.logger.Info("user signed in", zap.String("user_id", u.ID), zap.String("ip", ip))
	return &LoginResult{Token: token, ExpiresAt: sess.ExpiresAt, User: u}, nil
}

// Logout revokes the current session.
func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	err := s.sessions.Revoke(ctx, userID, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// Register creates a subscriber account. The very first account becomes an
// administrator and is considered verified.
func (s *Service) Register(ctx context.Context, dto *RegisterDTO) (*models.UserModel, error) {
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	bootstrap := total == 0
	if !bootstrap && !s.security.AllowRegistration {
		return nil, apperr.ErrRegistrationClosed
	}

	username, err := user.CheckUsername(dto.Username)
	if err != nil {
		return nil, err
	}
	email, err := user.CheckEmail(dto.Email)
	if err != nil {
		return nil, err
	}
	if err := password.Validate(dto.Password, s.security.PasswordMinLength); err != nil {
		return nil, apperr.Invalid("password", "%v", err)
	}
	if err := user.EnsureUnique(ctx, s.users, username, email, ""); err != nil {
		return nil, err
	}
	hash, err := password.Hash(dto.Password)
	if err != nil {
		return nil, err
	}

	u := &models.UserModel{
		Username: username,
		Email:    email,
		Password: hash,
		Name:     strings.TrimSpace(dto.Name),
		Role:     models.RoleSubscriber,
		Status:   models.UserActive,
	}
	if bootstrap {
		now := s.now()
		u.Role = models.RoleAdmin
		u.EmailVerifiedAt = &now
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("role", u.Role))

	if u.EmailVerifiedAt == nil {
		if err := s.sendVerification(ctx, u); err != nil {
			s.logger.Warn("send verification email failed", zap.String("user_id", u.ID), zap.Error(err))
		}
	}
	return u, nil
}

// ForgotPassword mails a reset link when email belongs to an active account.
// It never reports whether the address is known.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.Status != models.UserActive {
		return nil
	}

	if err := s.tokens.DeleteResetsFor(ctx, u.Email); err != nil {
		return err
	}
	raw, hash, err := newToken()
	if err != nil {
		return err
	}
	ttl := time.Duration(s.security.ResetTokenTTLMinutes) * time.Minute
	if err := s.tokens.CreateReset(ctx, &models.PasswordResetToken{
		Email:     u.Email,
		TokenHash: hash,
		ExpiresAt: s.now().Add(ttl),
	}); err != nil {
		return err
	}

	msg, err := mail.PasswordReset(s.site.Title, u.Email, u.DisplayName(), s.link("/reset-password", raw))
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("send password reset email failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	return nil
}

// ResetPassword consumes a reset token, sets the new password, lifts any
// lockout and signs out every session.
func (s *Service) ResetPassword(ctx context.Context, token, plain string) error {
	if err := password.Validate(plain, s.security.PasswordMinLength); err != nil {
		return apperr.Invalid("password", "%v", err)
	}
	grant, err := s.tokens.ConsumeReset(ctx, hashToken(strings.TrimSpace(token)), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrInvalidToken
	}
	if err != nil {
		return err
	}
	u, err := s.users.FindByEmail(ctx, grant.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrInvalidToken
	}
	if err != nil {
		return err
	}

	hash, err := password.Hash(plain)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	if err := s.users.Unlock(ctx, u.ID); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllExcept(ctx, u.ID, ""); err != nil {
		return err
	}
	s.logger.Info("password reset", zap.String("user_id", u.ID))
	return nil
}

// VerifyEmail confirms the address a verification token was sent to.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*models.UserModel, error) {
	grant, err := s.tokens.FindValidVerification(ctx, hashToken(strings.TrimSpace(token)), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if err := s.users.MarkEmailVerified(ctx, grant.UserID, s.now()); err != nil {
		return nil, err
	}
	if err := s.tokens.DeleteVerificationsFor(ctx, grant.UserID); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, grant.UserID)
}

// ResendVerification mails a fresh verification link to an unverified user.
func (s *Service) ResendVerification(ctx context.Context, userID string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.EmailVerifiedAt != nil {
		return apperr.Invalid("email", "is already verified")
	}
	return s.sendVerification(ctx, u)
}

// Sessions lists the user's active sessions.
func (s *Service) Sessions(ctx context.Context, userID string) ([]models.UserSession, error) {
	return s.sessions.ListActive(ctx, userID)
}

func (s *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	err := s.sessions.Revoke(ctx, userID, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("session")
	}
	return err
}

// RevokeOtherSessions signs out everywhere except keepSessionID.
func (s *Service) RevokeOtherSessions(ctx context.Context, userID, keepSessionID string) error {
	return s.sessions.RevokeAllExcept(ctx, userID, keepSessionID)
}

func (s *Service) sendVerification(ctx context.Context, u *models.UserModel) error {
	if err := s.tokens.DeleteVerificationsFor(ctx, u.ID); err != nil {
		return err
	}
	raw, hash, err := newToken()
	if err != nil {
		return err
	}
	ttl := time.Duration(s.security.VerifyTokenTTLHours) * time.Hour
	if err := s.tokens.CreateVerification(ctx, &models.EmailVerificationToken{
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: s.now().Add(ttl),
	}); err != nil {
		return err
	}
	msg, err := mail.VerifyEmail(s.site.Title, u.Email, u.DisplayName(), s.link("/verify-email", raw))
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg)
}

func (s *Service) lockout() time.Duration {
	return time.Duration(s.security.LockoutMinutes) * time.Minute
}

func (s *Service) link(path, token string) string {
	return strings.TrimRight(s.site.URL, "/") + path + "?token=" + url.QueryEscape(token)
}
