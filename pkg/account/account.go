package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ValidRole checks if the given role is part of the closed role set
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// TwoFactorState is the enrollment state of a TOTP credential.
type TwoFactorState string

const (
	// TwoFactorDisabled means no secret is stored.
	TwoFactorDisabled TwoFactorState = "disabled"
	// TwoFactorPending means a secret is stored but not yet confirmed by a
	// valid passcode; login does not challenge in this state.
	TwoFactorPending TwoFactorState = "pending"
	// TwoFactorEnabled means the secret is confirmed and login requires a passcode.
	TwoFactorEnabled TwoFactorState = "enabled"
)

// TwoFactor is a tagged variant: Secret is empty iff State is TwoFactorDisabled.
// There is no separate enabled flag, so "secret present but disabled" is not
// representable.
type TwoFactor struct {
	State  TwoFactorState `json:"state"`
	Secret string         `json:"-"`
}

// Active reports whether login must be challenged with a passcode.
func (t TwoFactor) Active() bool {
	return t.State == TwoFactorEnabled
}

// Account is the identity record for one end user.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone,omitempty"`
	Country      string    `json:"country,omitempty"`

	EmailVerified       bool       `json:"email_verified"`
	VerifyCode          *string    `json:"-"`
	VerifyCodeExpiresAt *time.Time `json:"-"`

	ResetCode          *string    `json:"-"`
	ResetCodeExpiresAt *time.Time `json:"-"`

	TwoFactor TwoFactor `json:"two_factor"`

	Premium         bool       `json:"premium"`
	ReferralCode    string     `json:"referral_code"`
	ReferralCredits int        `json:"referral_credits"`
	ReferredBy      *uuid.UUID `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeEmail lower-cases and trims an email for unique comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetVerifyCode stores a fresh email verification code with its expiry.
func (a *Account) SetVerifyCode(code string, expiresAt time.Time) {
	a.VerifyCode = &code
	a.VerifyCodeExpiresAt = &expiresAt
}

// ClearVerifyCode removes the verification code pair; codes are single-use.
func (a *Account) ClearVerifyCode() {
	a.VerifyCode = nil
	a.VerifyCodeExpiresAt = nil
}

// SetResetCode stores a fresh password reset code with its expiry.
func (a *Account) SetResetCode(code string, expiresAt time.Time) {
	a.ResetCode = &code
	a.ResetCodeExpiresAt = &expiresAt
}

// ClearResetCode removes the reset code pair; codes are single-use.
func (a *Account) ClearResetCode() {
	a.ResetCode = nil
	a.ResetCodeExpiresAt = nil
}

// CodeCheck is the explicit result of comparing a submitted code against a
// stored code/expiry pair. Lookup functions return this instead of driving
// control flow through errors.
type CodeCheck int

const (
	// CodeOK means the code matched and is within its expiry window.
	CodeOK CodeCheck = iota
	// CodeMissing means no code is stored.
	CodeMissing
	// CodeMismatch means a code is stored but the submitted value differs.
	CodeMismatch
	// CodeExpired means the code matched but its window has elapsed.
	CodeExpired
)

// CheckVerifyCode compares a submitted verification code at the given instant.
// The code is accepted when now <= expiry.
func (a *Account) CheckVerifyCode(code string, now time.Time) CodeCheck {
	return checkCode(a.VerifyCode, a.VerifyCodeExpiresAt, code, now, false)
}

// CheckResetCode compares a submitted reset code at the given instant.
// The code is accepted when now < expiry.
func (a *Account) CheckResetCode(code string, now time.Time) CodeCheck {
	return checkCode(a.ResetCode, a.ResetCodeExpiresAt, code, now, true)
}

func checkCode(stored *string, expiresAt *time.Time, submitted string, now time.Time, strictExpiry bool) CodeCheck {
	if stored == nil || expiresAt == nil {
		return CodeMissing
	}
	if *stored != submitted {
		return CodeMismatch
	}
	if strictExpiry {
		if !now.Before(*expiresAt) {
			return CodeExpired
		}
	} else if now.After(*expiresAt) {
		return CodeExpired
	}
	return CodeOK
}
