// Package password hashes and checks account passwords with bcrypt.
package password

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is bcrypt's input limit in bytes.
const MaxLength = 72

var ErrMismatch = errors.New("password does not match")

// dummyHash is compared against when no account exists so a failed lookup
// costs as much as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("inkwell-dummy-password"), bcrypt.DefaultCost)

func Hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Compare returns ErrMismatch unless plain matches hash.
func Compare(hash, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return ErrMismatch
	}
	return nil
}

// CompareDummy burns the time of a real comparison.
func CompareDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}

// Validate checks the password policy: at least minLen characters, at most
// MaxLength bytes, and both a letter and a digit.
func Validate(plain string, minLen int) error {
	if utf8.RuneCountInString(plain) < minLen {
		return fmt.Errorf("must be at least %d characters", minLen)
	}
	if len(plain) > MaxLength {
		return fmt.Errorf("must be at most %d bytes", MaxLength)
	}
	var letter, digit bool
	for _, r := range plain {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return errors.New("must contain a letter and a digit")
	}
	return nil
}
