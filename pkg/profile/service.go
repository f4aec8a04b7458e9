package profile

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

// Service serves the authenticated account's own record and password
// changes. Two-factor management lives in pkg/twofa and is mounted
// alongside this service's routes.
type Service struct {
	repo      account.Repository
	passwords *login.HashPool
	notifier  *notification.NotificationManager
}

func NewService(repo account.Repository, passwords *login.HashPool, notifier *notification.NotificationManager) *Service {
	return &Service{
		repo:      repo,
		passwords: passwords,
		notifier:  notifier,
	}
}

// Get returns the account record for the authenticated subject.
func (s *Service) Get(ctx context.Context, accountID uuid.UUID) (account.Account, error) {
	acct, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return account.Account{}, errors.Wrap(err, errors.ErrCodeAccountNotFound, "account not found")
	}
	return acct, nil
}

// ChangePassword replaces the password hash after verifying the current
// password. The reset-code flow in pkg/login covers the forgotten case.
func (s *Service) ChangePassword(ctx context.Context, accountID uuid.UUID, currentPassword, newPassword string) error {
	acct, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeAccountNotFound, "account not found")
	}

	valid, err := s.passwords.Verify(ctx, currentPassword, acct.PasswordHash)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to verify password")
	}
	if !valid {
		slog.Warn("Password change with wrong current password", "channel", "security", "accountId", acct.ID)
		return errors.New(errors.ErrCodeInvalidCredentials, "current password is incorrect")
	}

	if err := login.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(ctx, newPassword)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to hash password")
	}

	acct.PasswordHash = hash
	acct.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, acct); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to save account")
	}

	s.notifier.SendEmailAsync(notification.PasswordChangedNotice, notification.NotificationData{
		To:   acct.Email,
		Data: map[string]string{"FirstName": acct.FirstName},
	})

	slog.Info("Password changed", "channel", "security", "accountId", acct.ID)
	return nil
}
