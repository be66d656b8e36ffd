package user

import (
	"context"
	"strings"
	"time"

	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/password"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"go.uber.org/zap"
)

// SessionRevoker signs a user out of their sessions.
type SessionRevoker interface {
	RevokeAllExcept(ctx context.Context, userID, keepSessionID string) error
}

type Service struct {
	users    repository.UserRepository
	sessions SessionRevoker
	security config.SecurityConfig
	logger   *zap.Logger
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("UserService")
		}
	}
}

func NewService(users repository.UserRepository, sessions SessionRevoker, security config.SecurityConfig, opts ...ServiceOption) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		security: security,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, query ListQuery, q pagination.Query) ([]models.UserModel, response.Pagination, error) {
	return s.users.List(ctx, repository.UserFilter{
		Role:   query.Role,
		Status: query.Status,
		Search: strings.TrimSpace(query.Search),
	}, q)
}

func (s *Service) Get(ctx context.Context, id string) (*models.UserModel, error) {
	return s.users.FindByID(ctx, id)
}

// Create adds an account on behalf of an administrator.
func (s *Service) Create(ctx context.Context, dto *CreateUserDTO) (*models.UserModel, error) {
	username, err := CheckUsername(dto.Username)
	if err != nil {
		return nil, err
	}
	email, err := CheckEmail(dto.Email)
	if err != nil {
		return nil, err
	}
	role := dto.Role
	if role == "" {
		role = models.RoleSubscriber
	}
	if err := checkRole(role); err != nil {
		return nil, err
	}
	status := dto.Status
	if status == "" {
		status = models.UserActive
	}
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	if err := password.Validate(dto.Password, s.security.PasswordMinLength); err != nil {
		return nil, apperr.Invalid("password", "%v", err)
	}
	if err := EnsureUnique(ctx, s.users, username, email, ""); err != nil {
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
		Bio:      strings.TrimSpace(dto.Bio),
		Role:     role,
		Status:   status,
	}
	if dto.EmailVerified {
		now := s.now()
		u.EmailVerifiedAt = &now
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", u.ID), zap.String("role", u.Role))
	return u, nil
}

// Update edits any account. An administrator cannot demote or deactivate
// their own account.
func (s *Service) Update(ctx context.Context, actor *models.UserModel, id string, dto *UpdateUserDTO) (*models.UserModel, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	self := actor != nil && actor.ID == u.ID

	fields := map[string]interface{}{}
	if dto.Username != nil {
		username, err := CheckUsername(*dto.Username)
		if err != nil {
			return nil, err
		}
		if err := EnsureUnique(ctx, s.users, username, "", u.ID); err != nil {
			return nil, err
		}
		fields["username"] = username
	}
	if dto.Email != nil {
		email, err := CheckEmail(*dto.Email)
		if err != nil {
			return nil, err
		}
		if email != u.Email {
			if err := EnsureUnique(ctx, s.users, "", email, u.ID); err != nil {
				return nil, err
			}
			fields["email"] = email
		}
	}
	if dto.Role != nil {
		if err := checkRole(*dto.Role); err != nil {
			return nil, err
		}
		if self && *dto.Role != models.RoleAdmin {
			return nil, apperr.Invalid("role", "you cannot demote your own account")
		}
		fields["role"] = *dto.Role
	}
	if dto.Status != nil {
		if err := checkStatus(*dto.Status); err != nil {
			return nil, err
		}
		if self && *dto.Status != models.UserActive {
			return nil, apperr.Invalid("status", "you cannot deactivate your own account")
		}
		fields["status"] = *dto.Status
	}
	if dto.Name != nil {
		fields["name"] = strings.TrimSpace(*dto.Name)
	}
	if dto.Bio != nil {
		fields["bio"] = strings.TrimSpace(*dto.Bio)
	}
	if dto.Avatar != nil {
		fields["avatar"] = strings.TrimSpace(*dto.Avatar)
	}
	if dto.Timezone != nil {
		tz, err := checkTimezone(*dto.Timezone)
		if err != nil {
			return nil, err
		}
		fields["timezone"] = tz
	}
	if dto.Password != nil {
		if err := password.Validate(*dto.Password, s.security.PasswordMinLength); err != nil {
			return nil, apperr.Invalid("password", "%v", err)
		}
		hash, err := password.Hash(*dto.Password)
		if err != nil {
			return nil, err
		}
		fields["password"] = hash
	}

	if len(fields) > 0 {
		if err := s.users.Update(ctx, u.ID, fields); err != nil {
			return nil, err
		}
	}
	if _, ok := fields["password"]; ok && !self {
		if err := s.sessions.RevokeAllExcept(ctx, u.ID, ""); err != nil {
			return nil, err
		}
	}
	if status, ok := fields["status"]; ok && status != models.UserActive {
		if err := s.sessions.RevokeAllExcept(ctx, u.ID, ""); err != nil {
			return nil, err
		}
	}
	return s.users.FindByID(ctx, u.ID)
}

// Delete removes an account. Authored content is kept without an author.
func (s *Service) Delete(ctx context.Context, actor *models.UserModel, id string) error {
	if actor != nil && actor.ID == id {
		return apperr.Invalid("id", "you cannot delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}

// Unlock clears a login lockout.
func (s *Service) Unlock(ctx context.Context, id string) (*models.UserModel, error) {
	if err := s.users.Unlock(ctx, id); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, id)
}

// UpdateProfile edits the caller's own profile. Changing the email address
// marks it unverified again.
func (s *Service) UpdateProfile(ctx context.Context, id string, dto *UpdateProfileDTO) (*models.UserModel, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if dto.Email != nil {
		email, err := CheckEmail(*dto.Email)
		if err != nil {
			return nil, err
		}
		if email != u.Email {
			if err := EnsureUnique(ctx, s.users, "", email, u.ID); err != nil {
				return nil, err
			}
			fields["email"] = email
			fields["email_verified_at"] = nil
		}
	}
	if dto.Name != nil {
		fields["name"] = strings.TrimSpace(*dto.Name)
	}
	if dto.Bio != nil {
		fields["bio"] = strings.TrimSpace(*dto.Bio)
	}
	if dto.Avatar != nil {
		fields["avatar"] = strings.TrimSpace(*dto.Avatar)
	}
	if dto.Timezone != nil {
		tz, err := checkTimezone(*dto.Timezone)
		if err != nil {
			return nil, err
		}
		fields["timezone"] = tz
	}
	if len(fields) > 0 {
		if err := s.users.Update(ctx, u.ID, fields); err != nil {
			return nil, err
		}
	}
	return s.users.FindByID(ctx, u.ID)
}

// ChangePassword replaces the caller's password after checking the current
// one, then signs out every other session.
func (s *Service) ChangePassword(ctx context.Context, id, sessionID string, dto *ChangePasswordDTO) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := password.Compare(u.Password, dto.CurrentPassword); err != nil {
		return apperr.Invalid("current_password", "is incorrect")
	}
	if dto.NewPassword == dto.CurrentPassword {
		return apperr.Invalid("new_password", "must differ from the current password")
	}
	if err := password.Validate(dto.NewPassword, s.security.PasswordMinLength); err != nil {
		return apperr.Invalid("new_password", "%v", err)
	}
	hash, err := password.Hash(dto.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllExcept(ctx, u.ID, sessionID); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.String("user_id", u.ID))
	return nil
}
