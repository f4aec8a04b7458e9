// Package emailverify confirms account email addresses with short-lived
// 6-digit codes sent at registration.
package emailverify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/simple-auth/simple-auth/pkg/account"
	"github.com/simple-auth/simple-auth/pkg/errors"
	"github.com/simple-auth/simple-auth/pkg/login"
	"github.com/simple-auth/simple-auth/pkg/notification"
)

// DefaultCodeTTL is how long a verification code stays valid.
const DefaultCodeTTL = 5 * time.Minute

// Service confirms and re-issues email verification codes.
type Service struct {
	repo     account.Repository
	notifier *notification.NotificationManager

	codeTTL time.Duration
	nowFunc func() time.Time
}

// Option is a function that configures a Service
type Option func(*Service)

// WithCodeTTL overrides the verification code lifetime
func WithCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.codeTTL = ttl
	}
}

// WithNowFunc overrides the clock, used in tests
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowFunc = nowFunc
	}
}

// NewService creates a new email verification service
func NewService(repo account.Repository, notifier *notification.NotificationManager, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		notifier: notifier,
		codeTTL:  DefaultCodeTTL,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Confirm checks the submitted code against the stored pair. The code must
// match exactly and the moment of submission must not be past the expiry.
// Success clears the code fields, marks the email verified, and sends the
// welcome email.
func (s *Service) Confirm(ctx context.Context, accountID uuid.UUID, code string) error {
	acct, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeAccountNotFound, "account not found")
	}
	if acct.EmailVerified {
		return errors.New(errors.ErrCodeEmailAlreadyVerified, "email is already verified")
	}

	now := s.nowFunc().UTC()
	if acct.CheckVerifyCode(code, now) != account.CodeOK {
		slog.Warn("Email confirmation rejected", "channel", "security", "accountId", accountID)
		return errors.New(errors.ErrCodeInvalidOrExpiredCode, "invalid or expired verification code")
	}

	acct.ClearVerifyCode()
	acct.EmailVerified = true
	acct.UpdatedAt = now
	if err := s.repo.Save(ctx, acct); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to save account")
	}

	s.notifier.SendEmailAsync(notification.WelcomeNotice, notification.NotificationData{
		To:   acct.Email,
		Data: map[string]string{"FirstName": acct.FirstName},
	})

	slog.Info("Email verified", "accountId", accountID)
	return nil
}

// Regenerate overwrites the stored code with a fresh one and resends the
// verification email. Verified accounts get an AlreadyVerified error.
func (s *Service) Regenerate(ctx context.Context, accountID uuid.UUID) error {
	acct, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeAccountNotFound, "account not found")
	}
	if acct.EmailVerified {
		return errors.New(errors.ErrCodeEmailAlreadyVerified, "email is already verified")
	}

	code, err := login.GeneratePasscode()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to generate verification code")
	}

	now := s.nowFunc().UTC()
	acct.SetVerifyCode(code, now.Add(s.codeTTL))
	acct.UpdatedAt = now
	if err := s.repo.Save(ctx, acct); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to save account")
	}

	s.notifier.SendEmailAsync(notification.EmailVerificationNotice, notification.NotificationData{
		To:   acct.Email,
		Data: map[string]string{"FirstName": acct.FirstName, "Code": code},
	})

	slog.Info("Verification code regenerated", "accountId", accountID)
	return nil
}
