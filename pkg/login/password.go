package login

import (
	"unicode"

	"github.com/simple-auth/simple-auth/pkg/errors"
)

const minPasswordLength = 8

// ValidatePassword enforces the password policy for registration and reset:
// at least 8 characters with one letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return errors.InvalidInput("password", "must be at least 8 characters")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return errors.InvalidInput("password", "must contain at least one letter and one digit")
	}
	return nil
}
