// Package account defines the account record, its lifecycle fields, and the
// Repository persistence boundary with PostgreSQL and in-memory
// implementations.
//
// The account record carries the credential material for one end user:
// password hash, email verification and password reset code pairs, and the
// TOTP two-factor state. Code pairs are either both present with an expiry or
// both absent. The two-factor state is a tagged variant so a stored secret
// without a state is not representable.
package account
