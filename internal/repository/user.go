package repository

import (
	"context"
	"strings"
	"time"

	"github.com/inkwell-cms/inkwell/internal/database"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"gorm.io/gorm"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Role   string
	Status string
	Search string
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserModel, error)
	FindByUsername(ctx context.Context, username string) (*models.UserModel, error)
	FindByEmail(ctx context.Context, email string) (*models.UserModel, error)
	FindByLogin(ctx context.Context, login string) (*models.UserModel, error)
	UsernameExists(ctx context.Context, username, excludeID string) (bool, error)
	EmailExists(ctx context.Context, email, excludeID string) (bool, error)
	List(ctx context.Context, filter UserFilter, q pagination.Query) ([]models.UserModel, response.Pagination, error)
	Create(ctx context.Context, user *models.UserModel) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockFor time.Duration, now time.Time) (*models.UserModel, error)
	ResetFailedLogins(ctx context.Context, id, ip string, now time.Time) error
	Unlock(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, role string) (int64, error)
}

type userRepository struct {
	db *gorm.DB
	t  table[models.UserModel]
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db: db,
		t:  table[models.UserModel]{db: db, name: "user", deps: database.UserDependents},
	}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.UserModel, error) {
	return r.t.findBy(ctx, "id", id)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.UserModel, error) {
	return r.t.findBy(ctx, "username", strings.ToLower(strings.TrimSpace(username)))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.UserModel, error) {
	return r.t.findBy(ctx, "email", strings.ToLower(email))
}

// FindByLogin matches either the username or the email address. Both are
// stored lowercased.
func (r *userRepository) FindByLogin(ctx context.Context, login string) (*models.UserModel, error) {
	var user models.UserModel
	l := strings.ToLower(strings.TrimSpace(login))
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", l, l).
		First(&user).Error
	if err != nil {
		return nil, wrap(err, "find user by login %q", login)
	}
	return &user, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username, excludeID string) (bool, error) {
	return r.t.taken(ctx, "username", strings.ToLower(strings.TrimSpace(username)), excludeID)
}

func (r *userRepository) EmailExists(ctx context.Context, email, excludeID string) (bool, error) {
	return r.t.taken(ctx, "email", strings.ToLower(email), excludeID)
}

func (r *userRepository) List(ctx context.Context, filter UserFilter, q pagination.Query) ([]models.UserModel, response.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&models.UserModel{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("(LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(name) LIKE ?)", p, p, p)
	}

	users := []models.UserModel{}
	meta, err := pagination.Paginate(query, q, &users, orderBy("created_at DESC"))
	if err != nil {
		return nil, response.Pagination{}, wrap(err, "list users")
	}
	return users, meta, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.UserModel) error {
	user.Email = strings.ToLower(user.Email)
	return r.t.create(ctx, user)
}

func (r *userRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if email, ok := fields["email"].(string); ok {
		fields["email"] = strings.ToLower(email)
	}
	return r.t.update(ctx, id, fields)
}

// Delete removes the user, nulling authored content and dropping sessions and tokens.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

// RecordFailedLogin atomically bumps the failure counter and locks the
// account once it reaches maxAttempts. A lock that has already lapsed starts
// a fresh count. It returns the updated user.
func (r *userRepository) RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockFor time.Duration, now time.Time) (*models.UserModel, error) {
	var user models.UserModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev models.UserModel
		if err := tx.Select("id", "locked_until").Where("id = ?", id).First(&prev).Error; err != nil {
			return err
		}
		if prev.LockedUntil != nil && !prev.LockedUntil.After(now) {
			if err := tx.Model(&models.UserModel{}).Where("id = ?", id).
				UpdateColumns(map[string]interface{}{"failed_login_attempts": 0, "locked_until": nil}).Error; err != nil {
				return err
			}
		}

		res := tx.Model(&models.UserModel{}).Where("id = ?", id).
			UpdateColumn("failed_login_attempts", gorm.Expr("failed_login_attempts + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			return err
		}
		if maxAttempts > 0 && user.FailedLoginAttempts >= maxAttempts {
			until := now.Add(lockFor)
			if err := tx.Model(&models.UserModel{}).Where("id = ?", id).
				UpdateColumn("locked_until", until).Error; err != nil {
				return err
			}
			user.LockedUntil = &until
		}
		return nil
	})
	if err != nil {
		return nil, wrap(err, "record failed login for user %s", id)
	}
	return &user, nil
}

// ResetFailedLogins clears lockout state and records a successful login.
func (r *userRepository) ResetFailedLogins(ctx context.Context, id, ip string, now time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"failed_login_attempts": 0,
			"locked_until":          nil,
			"last_login_at":         now,
			"last_login_ip":         ip,
		}).Error
	return wrap(err, "reset failed logins for user %s", id)
}

func (r *userRepository) Unlock(ctx context.Context, id string) error {
	return r.t.update(ctx, id, map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
	})
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.t.update(ctx, id, map[string]interface{}{"password": hash})
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	return r.t.update(ctx, id, map[string]interface{}{"email_verified_at": at})
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	return r.t.count(ctx, "")
}

func (r *userRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	return r.t.count(ctx, "role = ?", role)
}
