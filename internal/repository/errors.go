// Package repository provides the data access layer. Each entity has an
// interface and an unexported GORM implementation; every method takes a context.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inkwell-cms/inkwell/internal/database"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique column already holds the value.
	ErrDuplicate = errors.New("record already exists")
)

// wrap classifies driver errors into the package sentinels and adds context.
func wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case database.IsNotFound(err):
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	case database.IsDuplicate(err):
		return fmt.Errorf("%s: %w", msg, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

// likePrefix builds a prefix LIKE pattern with wildcards stripped from term.
func likePrefix(term string) string {
	return strings.NewReplacer("%", "", "_", "", "\\", "").Replace(strings.TrimSpace(term)) + "%"
}

// likePattern lowercases term and strips LIKE wildcards so user input matches literally.
func likePattern(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	term = strings.NewReplacer("%", "", "_", "", "\\", "").Replace(term)
	return "%" + term + "%"
}
