package models

import "time"

// Roles, lowest privilege first.
const (
	RoleSubscriber = "subscriber"
	RoleAuthor     = "author"
	RoleEditor     = "editor"
	RoleAdmin      = "admin"
)

// Account states.
const (
	UserActive    = "active"
	UserInactive  = "inactive"
	UserSuspended = "suspended"
)

var roleRank = map[string]int{
	RoleSubscriber: 0,
	RoleAuthor:     1,
	RoleEditor:     2,
	RoleAdmin:      3,
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// ValidUserStatus reports whether status is a known account state.
func ValidUserStatus(status string) bool {
	switch status {
	case UserActive, UserInactive, UserSuspended:
		return true
	}
	return false
}

// UserModel is a CMS account.
type UserModel struct {
	Base
	Username            string     `json:"username"              gorm:"size:64;uniqueIndex;not null"`
	Email               string     `json:"email"                 gorm:"size:191;uniqueIndex;not null"`
	Password            string     `json:"-"                     gorm:"not null"`
	Name                string     `json:"name"`
	Bio                 string     `json:"bio"                   gorm:"type:text"`
	Avatar              string     `json:"avatar"`
	Role                string     `json:"role"                  gorm:"size:20;index;not null;default:subscriber"`
	Status              string     `json:"status"                gorm:"size:20;index;not null;default:active"`
	Timezone            string     `json:"timezone"              gorm:"size:64"`
	EmailVerifiedAt     *time.Time `json:"email_verified_at"`
	FailedLoginAttempts int        `json:"failed_login_attempts" gorm:"not null;default:0"`
	LockedUntil         *time.Time `json:"locked_until"`
	LastLoginAt         *time.Time `json:"last_login_at"`
	LastLoginIP         string     `json:"last_login_ip"         gorm:"size:64"`
}

func (UserModel) TableName() string { return "users" }

// HasRole reports whether the user's role is at least min.
func (u *UserModel) HasRole(min string) bool {
	if u == nil {
		return false
	}
	return roleRank[u.Role] >= roleRank[min]
}

// IsLocked reports whether the account is locked at now.
func (u *UserModel) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// DisplayName prefers the full name over the username.
func (u *UserModel) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
