package auth

import (
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
)

type LoginDTO struct {
	Login    string `json:"login"    binding:"required"`
	Password string `json:"password" binding:"required"`
	// Remember also sets the session cookie for browser clients.
	Remember bool `json:"remember"`
}

type RegisterDTO struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type ForgotPasswordDTO struct {
	Email string `json:"email" binding:"required"`
}

type ResetPasswordDTO struct {
	Token    string `json:"token"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type VerifyEmailDTO struct {
	Token string `json:"token" binding:"required"`
}

// LoginResult is a signed-in session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.UserModel
}

type userResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *userResponse `json:"user"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	IP        string    `json:"ip"`
	UA        string    `json:"ua"`
	Date      time.Time `json:"date"`
	ExpiresAt time.Time `json:"expires_at"`
	Current   bool      `json:"current"`
}

func toUserResponse(u *models.UserModel) *userResponse {
	return &userResponse{
		ID: u.ID, Username: u.Username, Email: u.Email, Name: u.Name, Avatar: u.Avatar,
		Role: u.Role, EmailVerified: u.EmailVerifiedAt != nil, LastLoginAt: u.LastLoginAt,
	}
}
