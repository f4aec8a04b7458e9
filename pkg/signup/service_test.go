package signup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simple-auth/simple-auth/pkg/account"
	"github.com/simple-auth/simple-auth/pkg/errors"
	"github.com/simple-auth/simple-auth/pkg/login"
	"github.com/simple-auth/simple-auth/pkg/notice"
	"github.com/simple-auth/simple-auth/pkg/notification"
	"github.com/simple-auth/simple-auth/pkg/tokengenerator"
)

type signupFixture struct {
	service   *Service
	repo      *account.InMemoryRepository
	mock      *notification.MockNotifier
	passwords *login.HashPool
	jwt       *tokengenerator.JwtService
	now       time.Time
}

func newSignupFixture(t *testing.T) *signupFixture {
	t.Helper()

	repo := account.NewInMemoryRepository()
	nm, mock, err := notice.NewMockNotificationManager()
	require.NoError(t, err)

	generator := tokengenerator.NewJwtTokenGenerator("test-secret", "simple-auth", "simple-auth-api")
	jwtService := tokengenerator.NewJwtService(tokengenerator.WithDefaultTokenGenerator(generator))

	now := time.Now().UTC()
	passwords := login.NewHashPool(2)
	service := NewService(repo, passwords, jwtService, nm,
		WithNowFunc(func() time.Time { return now }),
	)

	return &signupFixture{
		service:   service,
		repo:      repo,
		mock:      mock,
		passwords: passwords,
		jwt:       jwtService,
		now:       now,
	}
}

func validParams() RegisterParams {
	return RegisterParams{
		Email:      "alice@example.com",
		Password:   "Str0ng!Pass",
		FirstName:  "Alice",
		LastName:   "Smith",
		Country:    "DE",
		AgreeTerms: true,
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates unverified account with token", func(t *testing.T) {
		f := newSignupFixture(t)

		result, err := f.service.Register(ctx, validParams())
		require.NoError(t, err)

		acct := result.Account
		assert.Equal(t, "alice@example.com", acct.Email)
		assert.Equal(t, account.RoleUser, acct.Role)
		assert.False(t, acct.EmailVerified)
		assert.Equal(t, account.TwoFactorDisabled, acct.TwoFactor.State)
		assert.Len(t, acct.ReferralCode, referralCodeLength)

		require.NotNil(t, acct.VerifyCode)
		require.NotNil(t, acct.VerifyCodeExpiresAt)
		assert.WithinDuration(t, f.now.Add(DefaultVerifyCodeTTL), *acct.VerifyCodeExpiresAt, time.Second)

		// Stored hash verifies against the plaintext and is not the plaintext.
		ok, err := f.passwords.Verify(ctx, "Str0ng!Pass", acct.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotEqual(t, "Str0ng!Pass", acct.PasswordHash)

		claims, err := f.jwt.ParseToken(tokengenerator.ACCESS_TOKEN_NAME, result.Token)
		require.NoError(t, err)
		assert.Equal(t, acct.ID.String(), claims.Subject)
		assert.Empty(t, claims.Scope)

		require.Eventually(t, func() bool {
			return len(f.mock.Sent()) == 1
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, *acct.VerifyCode, f.mock.Sent()[0].Data["Code"])
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		f := newSignupFixture(t)

		_, err := f.service.Register(ctx, validParams())
		require.NoError(t, err)

		params := validParams()
		params.Email = "ALICE@example.com"
		_, err = f.service.Register(ctx, params)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeEmailAlreadyExists, errors.GetCode(err))
	})

	t.Run("referral credits referrer atomically", func(t *testing.T) {
		f := newSignupFixture(t)

		referrer, err := f.service.Register(ctx, validParams())
		require.NoError(t, err)

		params := validParams()
		params.Email = "bob@example.com"
		params.ReferralCode = referrer.Account.ReferralCode
		result, err := f.service.Register(ctx, params)
		require.NoError(t, err)

		require.NotNil(t, result.Account.ReferredBy)
		assert.Equal(t, referrer.Account.ID, *result.Account.ReferredBy)

		stored, err := f.repo.FindByID(ctx, referrer.Account.ID)
		require.NoError(t, err)
		assert.Equal(t, DefaultReferralCredit, stored.ReferralCredits)
	})

	t.Run("unknown referral code creates nothing", func(t *testing.T) {
		f := newSignupFixture(t)

		params := validParams()
		params.ReferralCode = "NOPE1234"
		_, err := f.service.Register(ctx, params)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

		_, err = f.repo.FindByEmail(ctx, params.Email)
		assert.ErrorIs(t, err, account.ErrAccountNotFound)
	})

	t.Run("validation failures", func(t *testing.T) {
		f := newSignupFixture(t)

		cases := map[string]func(*RegisterParams){
			"bad email":        func(p *RegisterParams) { p.Email = "not-an-email" },
			"weak password":    func(p *RegisterParams) { p.Password = "short" },
			"missing name":     func(p *RegisterParams) { p.FirstName = "" },
			"terms not agreed": func(p *RegisterParams) { p.AgreeTerms = false },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				params := validParams()
				params.Email = uuid.NewString() + "@example.com"
				mutate(&params)
				_, err := f.service.Register(ctx, params)
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
			})
		}
	})
}

func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := generateReferralCode()
		require.NoError(t, err)
		assert.Len(t, code, referralCodeLength)
		assert.False(t, seen[code], "referral codes should not repeat")
		seen[code] = true
	}
}
