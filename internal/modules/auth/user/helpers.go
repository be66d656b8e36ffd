package user

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,31}$`)

const maxEmailLength = 191

// CheckUsername lowercases raw and checks it is 3-32 characters of letters,
// digits, dots, dashes or underscores.
func CheckUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if !usernamePattern.MatchString(username) {
		return "", apperr.Invalid("username", "must be 3-32 characters of letters, digits, '.', '-' or '_'")
	}
	return username, nil
}

// CheckEmail returns the normalized bare address.
func CheckEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > maxEmailLength {
		return "", apperr.Invalid("email", "must be a valid email address")
	}
	return email, nil
}

// Uniqueness is the slice of the user repository EnsureUnique needs.
type Uniqueness interface {
	UsernameExists(ctx context.Context, username, excludeID string) (bool, error)
	EmailExists(ctx context.Context, email, excludeID string) (bool, error)
}

// EnsureUnique rejects a username or email already used by another account.
// Empty values are skipped.
func EnsureUnique(ctx context.Context, users Uniqueness, username, email, excludeID string) error {
	if username != "" {
		taken, err := users.UsernameExists(ctx, username, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("username", username)
		}
	}
	if email != "" {
		taken, err := users.EmailExists(ctx, email, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("email", email)
		}
	}
	return nil
}

func checkTimezone(raw string) (string, error) {
	tz := strings.TrimSpace(raw)
	if tz == "" {
		return "", nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", apperr.Invalid("timezone", "unknown time zone %q", tz)
	}
	return tz, nil
}

func checkRole(role string) error {
	if !models.ValidRole(role) {
		return apperr.Invalid("role", "must be one of subscriber, author, editor, admin")
	}
	return nil
}

func checkStatus(status string) error {
	if !models.ValidUserStatus(status) {
		return apperr.Invalid("status", "must be one of active, inactive, suspended")
	}
	return nil
}
