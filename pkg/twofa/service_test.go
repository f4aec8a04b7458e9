package twofa_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlzd/gotp"

	"github.com/simple-auth/simple-auth/pkg/account"
	"github.com/simple-auth/simple-auth/pkg/errors"
	"github.com/simple-auth/simple-auth/pkg/login"
	"github.com/simple-auth/simple-auth/pkg/twofa"
)

const testPassword = "Str0ng!Pass1"

type twofaFixture struct {
	service   *twofa.Service
	repo      *account.InMemoryRepository
	passwords *login.HashPool
}

func newTwofaFixture(t *testing.T) *twofaFixture {
	t.Helper()

	repo := account.NewInMemoryRepository()
	passwords := login.NewHashPool(2)
	service := twofa.NewService(repo, passwords)

	return &twofaFixture{service: service, repo: repo, passwords: passwords}
}

func (f *twofaFixture) createAccount(t *testing.T) account.Account {
	t.Helper()

	hash, err := f.passwords.Hash(context.Background(), testPassword)
	require.NoError(t, err)

	acct := account.Account{
		ID:           uuid.New(),
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         account.RoleUser,
		TwoFactor:    account.TwoFactor{State: account.TwoFactorDisabled},
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	created, err := f.repo.Create(context.Background(), acct)
	require.NoError(t, err)
	return created
}

func TestEnrollmentStateMachine(t *testing.T) {
	ctx := context.Background()

	t.Run("generate stores pending secret", func(t *testing.T) {
		f := newTwofaFixture(t)
		acct := f.createAccount(t)

		enrollment, err := f.service.GenerateSecret(ctx, acct.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, enrollment.Secret)
		assert.Contains(t, enrollment.OtpauthURL, "otpauth://totp/")

		stored, err := f.repo.FindByID(ctx, acct.ID)
		require.NoError(t, err)
		assert.Equal(t, account.TwoFactorPending, stored.TwoFactor.State)
		assert.Equal(t, enrollment.Secret, stored.TwoFactor.Secret)
		assert.False(t, stored.TwoFactor.Active())
	})

	t.Run("repeat generate while pending replaces secret", func(t *testing.T) {
		f := newTwofaFixture(t)
		acct := f.createAccount(t)

		first, err := f.service.GenerateSecret(ctx, acct.ID)
		require.NoError(t, err)
		second, err := f.service.GenerateSecret(ctx, acct.ID)
		require.NoError(t, err)
		assert.NotEqual(t, first.Secret, second.Secret)

		stored, _ := f.repo.FindByID(ctx, acct.ID)
		assert.Equal(t, second.Secret, stored.TwoFactor.Secret)
	})

	t.Run("valid passcode enables", func(t *testing.T) {
		f := newTwofaFixture(t)
		acct := f.createAccount(t)

		enrollment, err := f.service.GenerateSecret(ctx, acct.ID)
		require.NoError(t, err)

		passcode := gotp.NewDefaultTOTP(enrollment.Secret).Now()
		require.NoError(t, f.service.VerifyEnrollment(ctx, acct.ID, passcode))

		stored, _ := f.repo.FindByID(ctx, acct.ID)
		assert.Equal(t, account.TwoFactorEnabled, stored.TwoFactor.State)
		assert.True(t, stored.TwoFactor.Active())
	})

	t.Run("invalid passcode keeps pending", func(t *testing.T) {
		f := newTwofaFixture(t)
		acct := f.createAccount(t)

		_, err := f.service.GenerateSecret(ctx, acct.ID)
		require.NoError(t, err)

		err = f.service.VerifyEnrollment(ctx, acct.ID, "000000")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeTwoFAInvalid, errors.GetCode(err))

		stored, _ := f.repo.FindByID(ctx, acct.ID)
		assert.Equal(t, account.TwoFactorPending, stored.TwoFactor.State)
	})

	t.Run("verify without pending enrollment conflicts", func(t *testing.T) {
		f := newTwofaFixture(t)
		acct := f.createAccount(t)

		err := f.service.VerifyEnrollment(ctx, acct.ID, "123456")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeConflict, errors.GetCode(err))
	})

	t.Run("generate while enabled conflicts", func(t *testing.T) {
		f := newTwofaFixture(t)
		acct := f.createAccount(t)

		enrollment, err := f.service.GenerateSecret(ctx, acct.ID)
		require.NoError(t, err)
		passcode := gotp.NewDefaultTOTP(enrollment.Secret).Now()
		require.NoError(t, f.service.VerifyEnrollment(ctx, acct.ID, passcode))

		_, err = f.service.GenerateSecret(ctx, acct.ID)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeConflict, errors.GetCode(err))
	})
}

func TestDisable(t *testing.T) {
	ctx := context.Background()

	enable := func(t *testing.T, f *twofaFixture, acct account.Account) {
		enrollment, err := f.service.GenerateSecret(ctx, acct.ID)
		require.NoError(t, err)
		passcode := gotp.NewDefaultTOTP(enrollment.Secret).Now()
		require.NoError(t, f.service.VerifyEnrollment(ctx, acct.ID, passcode))
	}

	t.Run("correct password disables and clears secret", func(t *testing.T) {
		f := newTwofaFixture(t)
		acct := f.createAccount(t)
		enable(t, f, acct)

		require.NoError(t, f.service.Disable(ctx, acct.ID, testPassword))

		stored, _ := f.repo.FindByID(ctx, acct.ID)
		assert.Equal(t, account.TwoFactorDisabled, stored.TwoFactor.State)
		assert.Empty(t, stored.TwoFactor.Secret)
	})

	t.Run("wrong password keeps it enabled", func(t *testing.T) {
		f := newTwofaFixture(t)
		acct := f.createAccount(t)
		enable(t, f, acct)

		err := f.service.Disable(ctx, acct.ID, "wrong-password1")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidCredentials, errors.GetCode(err))

		stored, _ := f.repo.FindByID(ctx, acct.ID)
		assert.Equal(t, account.TwoFactorEnabled, stored.TwoFactor.State)
	})

	t.Run("disable without enrollment conflicts", func(t *testing.T) {
		f := newTwofaFixture(t)
		acct := f.createAccount(t)

		err := f.service.Disable(ctx, acct.ID, testPassword)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeConflict, errors.GetCode(err))
	})
}

func TestValidateTotpPasscode(t *testing.T) {
	secret := gotp.RandomSecret(16)
	now := time.Now()

	t.Run("current passcode validates", func(t *testing.T) {
		passcode := gotp.NewDefaultTOTP(secret).Now()
		valid, err := twofa.ValidateTotpPasscode(secret, passcode, now)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("one step of drift is tolerated", func(t *testing.T) {
		previous := gotp.NewDefaultTOTP(secret).At(now.Add(-twofa.PERIOD * time.Second).Unix())
		valid, err := twofa.ValidateTotpPasscode(secret, previous, now)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("stale passcode is rejected", func(t *testing.T) {
		stale := gotp.NewDefaultTOTP(secret).At(now.Add(-3 * twofa.PERIOD * time.Second).Unix())
		valid, err := twofa.ValidateTotpPasscode(secret, stale, now)
		require.NoError(t, err)
		assert.False(t, valid)
	})
}
