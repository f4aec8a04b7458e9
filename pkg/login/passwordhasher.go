package login

import "strings"

// PasswordHasher defines the interface for password hashing implementations
type PasswordHasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash
	Verify(password, hashedPassword string) (bool, error)
}

// HasherForSchema returns the hasher able to verify the given encoded hash.
// New hashes are always produced by the argon2id hasher; bcrypt hashes from
// older accounts remain verifiable until their next password change.
func HasherForSchema(encodedHash string, argon *Argon2Hasher, bcrypt *BcryptHasher) PasswordHasher {
	if strings.HasPrefix(encodedHash, "$argon2id$") {
		return argon
	}
	return bcrypt
}
