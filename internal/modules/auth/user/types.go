package user

import (
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
)

type CreateUserDTO struct {
	Username      string `json:"username" binding:"required"`
	Email         string `json:"email"    binding:"required"`
	Password      string `json:"password" binding:"required"`
	Name          string `json:"name"`
	Bio           string `json:"bio"`
	Role          string `json:"role"`
	Status        string `json:"status"`
	EmailVerified bool   `json:"email_verified"`
}

type UpdateUserDTO struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
	Avatar   *string `json:"avatar"`
	Timezone *string `json:"timezone"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
}

type UpdateProfileDTO struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Bio      *string `json:"bio"`
	Avatar   *string `json:"avatar"`
	Timezone *string `json:"timezone"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password"     binding:"required"`
}

type ListQuery struct {
	Role   string `form:"role"`
	Status string `form:"status"`
	Search string `form:"q"`
}

type userResponse struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	Bio                 string     `json:"bio"`
	Avatar              string     `json:"avatar"`
	Timezone            string     `json:"timezone"`
	Role                string     `json:"role"`
	Status              string     `json:"status"`
	EmailVerifiedAt     *time.Time `json:"email_verified_at"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LockedUntil         *time.Time `json:"locked_until"`
	LastLoginAt         *time.Time `json:"last_login_at"`
	LastLoginIP         string     `json:"last_login_ip"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func toResponse(u *models.UserModel) *userResponse {
	return &userResponse{
		ID: u.ID, Username: u.Username, Email: u.Email, Name: u.Name, Bio: u.Bio,
		Avatar: u.Avatar, Timezone: u.Timezone, Role: u.Role, Status: u.Status,
		EmailVerifiedAt:     u.EmailVerifiedAt,
		FailedLoginAttempts: u.FailedLoginAttempts,
		LockedUntil:         u.LockedUntil,
		LastLoginAt:         u.LastLoginAt,
		LastLoginIP:         u.LastLoginIP,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func toResponses(users []models.UserModel) []*userResponse {
	out := make([]*userResponse, 0, len(users))
	for i := range users {
		out = append(out, toResponse(&users[i]))
	}
	return out
}
