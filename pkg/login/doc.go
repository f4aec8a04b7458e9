// Package login implements the sign-in flow: password verification against
// argon2id (and legacy bcrypt) hashes, the 2FA login challenge, and the
// password reset flow with single-use 6-digit codes.
//
// Hashing runs through a bounded pool so concurrent sign-ins cannot exhaust
// memory. A failed login burns the same hash work whether the email is
// unknown or the password is wrong.
package login
