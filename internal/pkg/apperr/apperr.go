// Package apperr holds the service-level error sentinels and maps every
// error a service can return onto the JSON error envelope.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"github.com/inkwell-cms/inkwell/internal/repository"
)

var (
	ErrForbidden          = errors.New("you do not have permission to do that")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrAccountDisabled    = errors.New("account is not active")
	ErrInvalidToken       = errors.New("token is invalid or has expired")
	ErrRegistrationClosed = errors.New("registration is disabled")
	ErrEmailNotVerified   = errors.New("email address is not verified")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Conflict wraps repository.ErrDuplicate with a message naming the field.
func Conflict(field, value string) error {
	return fmt.Errorf("%s %q is already taken: %w", field, value, repository.ErrDuplicate)
}

// NotFound wraps repository.ErrNotFound with the missing entity.
func NotFound(entity string) error {
	return fmt.Errorf("%s not found: %w", entity, repository.ErrNotFound)
}

// Status returns the HTTP status for err.
func Status(err error) int {
	var ve *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrAccountDisabled),
		errors.Is(err, ErrRegistrationClosed), errors.Is(err, ErrEmailNotVerified):
		return http.StatusForbidden
	case errors.Is(err, ErrAccountLocked):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

// Write aborts the request with the envelope matching err.
func Write(c *gin.Context, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		response.InternalError(c, err)
		return
	}
	response.Fail(c, status, message(err))
}

func message(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	for _, sentinel := range []error{
		ErrInvalidCredentials, ErrAccountLocked, ErrAccountDisabled, ErrInvalidToken,
		ErrRegistrationClosed, ErrEmailNotVerified, ErrForbidden,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
