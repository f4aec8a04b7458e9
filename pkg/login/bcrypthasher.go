package login

import (
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher implements PasswordHasher using bcrypt. It exists to verify
// hashes created before the argon2id migration; new hashes use Argon2Hasher.
type BcryptHasher struct{}

// NewBcryptHasher creates a new BcryptHasher
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{}
}

// Hash implements PasswordHasher.Hash
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// Verify implements PasswordHasher.Verify. Malformed stored hashes count as
// a mismatch, never an error.
func (h *BcryptHasher) Verify(password, hashedPassword string) (bool, error) {
	if password == "" || hashedPassword == "" {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			slog.Warn("Stored password hash is malformed", "channel", "security", "reason", err.Error())
		}
		return false, nil
	}

	return true, nil
}
