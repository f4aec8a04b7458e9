package login

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/simple-auth/simple-auth/pkg/account"
	"github.com/simple-auth/simple-auth/pkg/errors"
	"github.com/simple-auth/simple-auth/pkg/notification"
	"github.com/simple-auth/simple-auth/pkg/tokengenerator"
	"github.com/simple-auth/simple-auth/pkg/twofa"
)

const (
	// DefaultResetCodeTTL is how long a password reset code stays valid.
	DefaultResetCodeTTL = 15 * time.Minute
)

// Service orchestrates sign-in, 2FA login completion, and the password reset
// flow.
type Service struct {
	repo       account.Repository
	passwords  *HashPool
	jwtService *tokengenerator.JwtService
	notifier   *notification.NotificationManager

	resetCodeTTL time.Duration
	nowFunc      func() time.Time
}

// Option is a function that configures a Service
type Option func(*Service)

// WithResetCodeTTL overrides the password reset code lifetime
func WithResetCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.resetCodeTTL = ttl
	}
}

// WithNowFunc overrides the clock, used in tests
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowFunc = nowFunc
	}
}

// NewService creates a new login service
func NewService(repo account.Repository, passwords *HashPool, jwtService *tokengenerator.JwtService, notifier *notification.NotificationManager, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		passwords:    passwords,
		jwtService:   jwtService,
		notifier:     notifier,
		resetCodeTTL: DefaultResetCodeTTL,
		nowFunc:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result carries the outcome of a successful sign-in or 2FA completion.
// When RequiresTwoFA is set only the temporary token is present; it grants
// access to the 2FA completion step and nothing else.
type Result struct {
	Account account.Account

	RequiresTwoFA bool
	TempToken     string
	TempExpiresAt time.Time

	AccessToken     string
	AccessExpiresAt time.Time

	// TwoFASetupRequired flags accounts whose role calls for a second factor
	// that is not enabled yet. Sign-in still succeeds; the client is expected
	// to steer the user into enrollment.
	TwoFASetupRequired bool
}

// Login authenticates an email/password pair. Unknown email and wrong
// password produce the same error, and both paths cost one hash
// verification.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	acct, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		// Burn a verification anyway so the miss is not observable by timing.
		s.passwords.VerifyDummy(ctx, password)
		slog.Warn("Login failed, unknown email", "channel", "security", "email", account.NormalizeEmail(email))
		return Result{}, errors.New(errors.ErrCodeInvalidCredentials, "invalid email or password")
	}

	valid, err := s.passwords.Verify(ctx, password, acct.PasswordHash)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to verify password")
	}
	if !valid {
		slog.Warn("Login failed, wrong password", "channel", "security", "accountId", acct.ID)
		return Result{}, errors.New(errors.ErrCodeInvalidCredentials, "invalid email or password")
	}

	if acct.TwoFactor.Active() {
		tempToken, tempExpiry, err := s.jwtService.GenerateTempToken(acct.ID.String(), string(acct.Role))
		if err != nil {
			return Result{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to issue temporary token")
		}
		slog.Info("Login pending two-factor challenge", "channel", "security", "accountId", acct.ID)
		return Result{
			Account:       acct,
			RequiresTwoFA: true,
			TempToken:     tempToken,
			TempExpiresAt: tempExpiry,
		}, nil
	}

	accessToken, accessExpiry, err := s.jwtService.GenerateAccessToken(acct.ID.String(), string(acct.Role))
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to issue access token")
	}

	result := Result{
		Account:         acct,
		AccessToken:     accessToken,
		AccessExpiresAt: accessExpiry,
	}
	if roleRequiresTwoFA(acct.Role) {
		result.TwoFASetupRequired = true
	}

	slog.Info("Login succeeded", "channel", "security", "accountId", acct.ID)
	return result, nil
}

// roleRequiresTwoFA reports whether the role is expected to carry a second
// factor. Sign-in is not blocked for these accounts; the result is flagged
// instead.
func roleRequiresTwoFA(role account.Role) bool {
	return role == account.RoleAdmin
}

// CompleteTwoFactorLogin exchanges a 2FA-scoped temporary token plus a valid
// TOTP passcode for a full-access token. A rejected passcode mutates nothing;
// the temporary token stays usable until its own expiry.
func (s *Service) CompleteTwoFactorLogin(ctx context.Context, tempToken, passcode string) (Result, error) {
	claims, err := s.jwtService.ParseToken(tokengenerator.TEMP_TOKEN_NAME, tempToken)
	if err != nil {
		return Result{}, mapTokenError(err)
	}
	if claims.Scope != tokengenerator.ScopeTwoFA {
		slog.Warn("Two-factor completion with unscoped token", "channel", "security", "subject", claims.Subject)
		return Result{}, errors.New(errors.ErrCodeInsufficientScope, "token is not scoped for two-factor completion")
	}

	acct, err := s.findBySubject(ctx, claims.Subject)
	if err != nil {
		return Result{}, err
	}
	if !acct.TwoFactor.Active() {
		return Result{}, errors.New(errors.ErrCodeConflict, "two-factor authentication is not enabled")
	}

	valid, err := twofa.ValidateTotpPasscode(acct.TwoFactor.Secret, passcode, s.nowFunc())
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to validate passcode")
	}
	if !valid {
		slog.Warn("Two-factor passcode rejected", "channel", "security", "accountId", acct.ID)
		return Result{}, errors.New(errors.ErrCodeTwoFAInvalid, "invalid passcode")
	}

	accessToken, accessExpiry, err := s.jwtService.GenerateAccessToken(acct.ID.String(), string(acct.Role))
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to issue access token")
	}

	slog.Info("Two-factor login completed", "channel", "security", "accountId", acct.ID)
	return Result{
		Account:         acct,
		AccessToken:     accessToken,
		AccessExpiresAt: accessExpiry,
	}, nil
}

// RequestPasswordReset stores a fresh reset code and emails it. The outcome
// is identical for known and unknown emails so the endpoint cannot be used to
// probe which addresses have accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acct, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		slog.Info("Password reset requested for unknown email", "channel", "security", "email", account.NormalizeEmail(email))
		return nil
	}

	code, err := GeneratePasscode()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to generate reset code")
	}

	now := s.nowFunc().UTC()
	acct.SetResetCode(code, now.Add(s.resetCodeTTL))
	acct.UpdatedAt = now
	if err := s.repo.Save(ctx, acct); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to save account")
	}

	s.notifier.SendEmailAsync(notification.PasswordResetNotice, notification.NotificationData{
		To:   acct.Email,
		Data: map[string]string{"FirstName": acct.FirstName, "Code": code},
	})

	slog.Info("Password reset code issued", "channel", "security", "accountId", acct.ID)
	return nil
}

// ResetPassword consumes a reset code and replaces the password hash. The
// code must match and still be inside its window; clearing the code fields on
// success makes it single-use.
func (s *Service) ResetPassword(ctx context.Context, code, newPassword string) error {
	now := s.nowFunc().UTC()
	acct, err := s.repo.FindByResetCode(ctx, code, now)
	if err != nil {
		slog.Warn("Password reset with invalid or expired code", "channel", "security")
		return errors.New(errors.ErrCodeInvalidResetCode, "invalid or expired reset code")
	}
	if acct.CheckResetCode(code, now) != account.CodeOK {
		return errors.New(errors.ErrCodeInvalidResetCode, "invalid or expired reset code")
	}

	hash, err := s.passwords.Hash(ctx, newPassword)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to hash password")
	}

	acct.PasswordHash = hash
	acct.ClearResetCode()
	acct.UpdatedAt = now
	if err := s.repo.Save(ctx, acct); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to save account")
	}

	s.notifier.SendEmailAsync(notification.PasswordChangedNotice, notification.NotificationData{
		To:   acct.Email,
		Data: map[string]string{"FirstName": acct.FirstName},
	})

	slog.Info("Password reset completed", "channel", "security", "accountId", acct.ID)
	return nil
}

func (s *Service) findBySubject(ctx context.Context, subject string) (account.Account, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return account.Account{}, errors.New(errors.ErrCodeTokenInvalid, "invalid token subject")
	}
	acct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return account.Account{}, errors.Wrap(err, errors.ErrCodeAccountNotFound, "account not found")
	}
	return acct, nil
}

func mapTokenError(err error) error {
	switch {
	case stderrors.Is(err, tokengenerator.ErrTokenExpired):
		return errors.New(errors.ErrCodeTokenExpired, "token expired")
	case stderrors.Is(err, tokengenerator.ErrTokenSignature),
		stderrors.Is(err, tokengenerator.ErrTokenMalformed),
		stderrors.Is(err, tokengenerator.ErrTokenInvalid):
		return errors.New(errors.ErrCodeTokenInvalid, "invalid token")
	default:
		return errors.Internal(err, "token parse failed")
	}
}
