package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAccountNotFound is returned when no account matches the lookup key.
	ErrAccountNotFound = errors.New("account not found")
	// ErrEmailExists is returned by Create when the normalized email is taken.
	ErrEmailExists = errors.New("email already registered")
	// ErrReferrerNotFound is returned by CreateWithReferral when the referral
	// code does not resolve to an account.
	ErrReferrerNotFound = errors.New("referrer not found")
)

// Repository is the persistence boundary for accounts. Save replaces the
// whole record atomically.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (Account, error)
	// FindByResetCode looks up the account holding the given unexpired reset
	// code at the given instant.
	FindByResetCode(ctx context.Context, code string, now time.Time) (Account, error)
	Create(ctx context.Context, a Account) (Account, error)
	Save(ctx context.Context, a Account) error
	// CreateWithReferral creates the account and credits the referrer in a
	// single transaction. Both writes land or neither does.
	CreateWithReferral(ctx context.Context, a Account, referralCode string, credit int) (Account, error)
}
