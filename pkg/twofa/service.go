package twofa

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/simple-auth/simple-auth/pkg/account"
	"github.com/simple-auth/simple-auth/pkg/errors"
)

const DefaultIssuer = "simple-auth"

// PasswordVerifier checks a password against a stored hash. Disabling 2FA
// requires the account password so a stolen session alone cannot remove the
// second factor.
type PasswordVerifier interface {
	Verify(ctx context.Context, password, encodedHash string) (bool, error)
}

// Enrollment is returned by GenerateSecret for the client to provision an
// authenticator app.
type Enrollment struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
}

// Service drives the TOTP enrollment state machine.
type Service struct {
	repo      account.Repository
	passwords PasswordVerifier
	issuer    string
	nowFunc   func() time.Time
}

// Option is a function that configures a Service
type Option func(*Service)

// WithIssuer sets the issuer name shown in authenticator apps
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// WithNowFunc overrides the clock, used in tests
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowFunc = nowFunc
	}
}

// NewService creates a new two-factor service
func NewService(repo account.Repository, passwords PasswordVerifier, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		passwords: passwords,
		issuer:    DefaultIssuer,
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateSecret creates a fresh TOTP secret and stores it in the pending
// state. Login is not challenged until the enrollment is verified. A repeat
// call while still pending replaces the secret.
func (s *Service) GenerateSecret(ctx context.Context, accountID uuid.UUID) (Enrollment, error) {
	acct, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, errors.ErrCodeAccountNotFound, "account not found")
	}
	if acct.TwoFactor.State == account.TwoFactorEnabled {
		return Enrollment{}, errors.New(errors.ErrCodeConflict, "two-factor authentication is already enabled")
	}

	secret, url, err := GenerateTotpSecret(s.issuer, acct.Email)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to generate totp secret")
	}

	acct.TwoFactor = account.TwoFactor{State: account.TwoFactorPending, Secret: secret}
	acct.UpdatedAt = s.nowFunc().UTC()
	if err := s.repo.Save(ctx, acct); err != nil {
		return Enrollment{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to save account")
	}

	slog.Info("Two-factor enrollment started", "channel", "security", "accountId", accountID)
	return Enrollment{Secret: secret, OtpauthURL: url}, nil
}

// VerifyEnrollment confirms a pending enrollment with a passcode from the
// authenticator app and moves the account to the enabled state.
func (s *Service) VerifyEnrollment(ctx context.Context, accountID uuid.UUID, passcode string) error {
	acct, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeAccountNotFound, "account not found")
	}
	if acct.TwoFactor.State != account.TwoFactorPending {
		return errors.New(errors.ErrCodeConflict, "no pending two-factor enrollment")
	}

	valid, err := ValidateTotpPasscode(acct.TwoFactor.Secret, passcode, s.nowFunc())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to validate passcode")
	}
	if !valid {
		slog.Warn("Two-factor enrollment passcode rejected", "channel", "security", "accountId", accountID)
		return errors.New(errors.ErrCodeTwoFAInvalid, "invalid passcode")
	}

	acct.TwoFactor.State = account.TwoFactorEnabled
	acct.UpdatedAt = s.nowFunc().UTC()
	if err := s.repo.Save(ctx, acct); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to save account")
	}

	slog.Info("Two-factor authentication enabled", "channel", "security", "accountId", accountID)
	return nil
}

// Disable turns two-factor authentication off. The account password is
// required; a valid session token alone is not enough.
func (s *Service) Disable(ctx context.Context, accountID uuid.UUID, password string) error {
	acct, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeAccountNotFound, "account not found")
	}
	if acct.TwoFactor.State == account.TwoFactorDisabled {
		return errors.New(errors.ErrCodeConflict, "two-factor authentication is not enabled")
	}

	valid, err := s.passwords.Verify(ctx, password, acct.PasswordHash)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to verify password")
	}
	if !valid {
		slog.Warn("Two-factor disable rejected, wrong password", "channel", "security", "accountId", accountID)
		return errors.New(errors.ErrCodeInvalidCredentials, "invalid password")
	}

	acct.TwoFactor = account.TwoFactor{State: account.TwoFactorDisabled}
	acct.UpdatedAt = s.nowFunc().UTC()
	if err := s.repo.Save(ctx, acct); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to save account")
	}

	slog.Info("Two-factor authentication disabled", "channel", "security", "accountId", accountID)
	return nil
}
