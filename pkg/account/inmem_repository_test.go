package account

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(email string) Account {
	now := time.Now().UTC()
	return Account{
		ID:           uuid.New(),
		Email:        NormalizeEmail(email),
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		Role:         RoleUser,
		ReferralCode: uuid.NewString()[:8],
		TwoFactor:    TwoFactor{State: TwoFactorDisabled},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestInMemoryRepository_CreateAndFind(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestAccount("alice@example.com"))
	require.NoError(t, err)

	t.Run("find by email is case-insensitive", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("find by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Email, found.Email)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := repo.FindByEmail(ctx, "bob@example.com")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, newTestAccount("Alice@Example.com"))
		assert.ErrorIs(t, err, ErrEmailExists)
	})
}

func TestInMemoryRepository_Save(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestAccount("alice@example.com"))
	require.NoError(t, err)

	created.EmailVerified = true
	created.TwoFactor = TwoFactor{State: TwoFactorPending, Secret: "JBSWY3DPEHPK3PXP"}
	require.NoError(t, repo.Save(ctx, created))

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, found.EmailVerified)
	assert.Equal(t, TwoFactorPending, found.TwoFactor.State)

	t.Run("save unknown account", func(t *testing.T) {
		err := repo.Save(ctx, newTestAccount("ghost@example.com"))
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestInMemoryRepository_FindByResetCode(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	acct := newTestAccount("alice@example.com")
	acct.SetResetCode("123456", now.Add(15*time.Minute))
	_, err := repo.Create(ctx, acct)
	require.NoError(t, err)

	t.Run("unexpired code found", func(t *testing.T) {
		found, err := repo.FindByResetCode(ctx, "123456", now)
		require.NoError(t, err)
		assert.Equal(t, acct.ID, found.ID)
	})

	t.Run("expired code not found", func(t *testing.T) {
		_, err := repo.FindByResetCode(ctx, "123456", now.Add(16*time.Minute))
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("unknown code not found", func(t *testing.T) {
		_, err := repo.FindByResetCode(ctx, "000000", now)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestInMemoryRepository_CreateWithReferral(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	referrer := newTestAccount("referrer@example.com")
	referrer.ReferralCode = "REF12345"
	_, err := repo.Create(ctx, referrer)
	require.NoError(t, err)

	t.Run("credits referrer and links account", func(t *testing.T) {
		created, err := repo.CreateWithReferral(ctx, newTestAccount("new@example.com"), "REF12345", 10)
		require.NoError(t, err)
		require.NotNil(t, created.ReferredBy)
		assert.Equal(t, referrer.ID, *created.ReferredBy)

		got, err := repo.FindByID(ctx, referrer.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, got.ReferralCredits)
	})

	t.Run("unknown referral code leaves no account behind", func(t *testing.T) {
		acct := newTestAccount("orphan@example.com")
		_, err := repo.CreateWithReferral(ctx, acct, "NOPE", 10)
		assert.ErrorIs(t, err, ErrReferrerNotFound)

		_, err = repo.FindByEmail(ctx, "orphan@example.com")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("duplicate email does not credit referrer", func(t *testing.T) {
		before, err := repo.FindByID(ctx, referrer.ID)
		require.NoError(t, err)

		dup := newTestAccount("new@example.com")
		_, err = repo.CreateWithReferral(ctx, dup, "REF12345", 10)
		assert.ErrorIs(t, err, ErrEmailExists)

		after, err := repo.FindByID(ctx, referrer.ID)
		require.NoError(t, err)
		assert.Equal(t, before.ReferralCredits, after.ReferralCredits)
	})
}
