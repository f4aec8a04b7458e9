package signup

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/simple-auth/simple-auth/pkg/account"
	"github.com/simple-auth/simple-auth/pkg/errors"
	"github.com/simple-auth/simple-auth/pkg/login"
	"github.com/simple-auth/simple-auth/pkg/notification"
	"github.com/simple-auth/simple-auth/pkg/tokengenerator"
)

const (
	// DefaultVerifyCodeTTL is how long an email verification code stays valid.
	DefaultVerifyCodeTTL = 5 * time.Minute
	// DefaultReferralCredit is added to the referrer when a referred account
	// registers.
	DefaultReferralCredit = 10

	referralCodeLength = 8
)

// Service handles account registration.
type Service struct {
	repo       account.Repository
	passwords  *login.HashPool
	jwtService *tokengenerator.JwtService
	notifier   *notification.NotificationManager

	verifyCodeTTL  time.Duration
	referralCredit int
	nowFunc        func() time.Time
}

// Option is a function that configures a Service
type Option func(*Service)

// WithVerifyCodeTTL overrides the verification code lifetime
func WithVerifyCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.verifyCodeTTL = ttl
	}
}

// WithReferralCredit overrides the credit granted per referred registration
func WithReferralCredit(credit int) Option {
	return func(s *Service) {
		s.referralCredit = credit
	}
}

// WithNowFunc overrides the clock, used in tests
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowFunc = nowFunc
	}
}

// NewService creates a new signup service
func NewService(repo account.Repository, passwords *login.HashPool, jwtService *tokengenerator.JwtService, notifier *notification.NotificationManager, opts ...Option) *Service {
	s := &Service{
		repo:           repo,
		passwords:      passwords,
		jwtService:     jwtService,
		notifier:       notifier,
		verifyCodeTTL:  DefaultVerifyCodeTTL,
		referralCredit: DefaultReferralCredit,
		nowFunc:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams carries the registration form fields.
type RegisterParams struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Phone        string
	Country      string
	AgreeTerms   bool
	ReferralCode string
}

// RegisterResult is the created account plus the full-access token issued
// with it. Registration itself authenticates; the email stays unverified
// until the code is confirmed.
type RegisterResult struct {
	Account   account.Account
	Token     string
	ExpiresAt time.Time
}

// Register validates the form, creates the account, and issues a full-access
// token. The verification email is dispatched out-of-band: a send failure is
// logged but never fails the registration. When a referral code is present
// the account creation and the referrer's credit land in one transaction.
func (s *Service) Register(ctx context.Context, params RegisterParams) (RegisterResult, error) {
	if err := s.validate(params); err != nil {
		return RegisterResult{}, err
	}

	hash, err := s.passwords.Hash(ctx, params.Password)
	if err != nil {
		return RegisterResult{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to hash password")
	}

	verifyCode, err := login.GeneratePasscode()
	if err != nil {
		return RegisterResult{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to generate verification code")
	}

	referralCode, err := generateReferralCode()
	if err != nil {
		return RegisterResult{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to generate referral code")
	}

	now := s.nowFunc().UTC()
	acct := account.Account{
		ID:           uuid.New(),
		Email:        account.NormalizeEmail(params.Email),
		PasswordHash: hash,
		Role:         account.RoleUser,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Phone:        params.Phone,
		Country:      params.Country,
		TwoFactor:    account.TwoFactor{State: account.TwoFactorDisabled},
		ReferralCode: referralCode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	acct.SetVerifyCode(verifyCode, now.Add(s.verifyCodeTTL))

	created, err := s.create(ctx, acct, params.ReferralCode)
	if err != nil {
		return RegisterResult{}, err
	}

	token, expiry, err := s.jwtService.GenerateAccessToken(created.ID.String(), string(created.Role))
	if err != nil {
		return RegisterResult{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to issue access token")
	}

	s.notifier.SendEmailAsync(notification.EmailVerificationNotice, notification.NotificationData{
		To:   created.Email,
		Data: map[string]string{"FirstName": created.FirstName, "Code": verifyCode},
	})

	slog.Info("Account registered", "channel", "security", "accountId", created.ID, "referred", params.ReferralCode != "")
	return RegisterResult{Account: created, Token: token, ExpiresAt: expiry}, nil
}

func (s *Service) create(ctx context.Context, acct account.Account, referralCode string) (account.Account, error) {
	var (
		created account.Account
		err     error
	)
	if referralCode != "" {
		created, err = s.repo.CreateWithReferral(ctx, acct, referralCode, s.referralCredit)
	} else {
		created, err = s.repo.Create(ctx, acct)
	}
	switch {
	case err == nil:
		return created, nil
	case stderrors.Is(err, account.ErrEmailExists):
		return account.Account{}, errors.New(errors.ErrCodeEmailAlreadyExists, "email is already registered")
	case stderrors.Is(err, account.ErrReferrerNotFound):
		return account.Account{}, errors.InvalidInput("referralCode", "unknown referral code")
	default:
		return account.Account{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to create account")
	}
}

func (s *Service) validate(params RegisterParams) error {
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return errors.InvalidInput("email", "not a valid email address")
	}
	if err := login.ValidatePassword(params.Password); err != nil {
		return err
	}
	if params.FirstName == "" {
		return errors.InvalidInput("first_name", "is required")
	}
	if !params.AgreeTerms {
		return errors.InvalidInput("agree_terms", "terms must be accepted")
	}
	return nil
}

const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateReferralCode() (string, error) {
	buf := make([]byte, referralCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referralAlphabet[int(b)%len(referralAlphabet)]
	}
	return string(buf), nil
}
