package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository with an in-memory map. It is used
// in tests and local development.
type InMemoryRepository struct {
	mutex    sync.RWMutex
	accounts map[uuid.UUID]Account
	byEmail  map[string]uuid.UUID
}

// NewInMemoryRepository creates a new in-memory account repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts: make(map[uuid.UUID]Account),
		byEmail:  make(map[string]uuid.UUID),
	}
}

// FindByEmail retrieves an account by its normalized email
func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return r.accounts[id], nil
}

// FindByID retrieves an account by its id
func (r *InMemoryRepository) FindByID(ctx context.Context, id uuid.UUID) (Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

// FindByResetCode retrieves the account holding the given unexpired reset code
func (r *InMemoryRepository) FindByResetCode(ctx context.Context, code string, now time.Time) (Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, a := range r.accounts {
		if a.ResetCode != nil && *a.ResetCode == code &&
			a.ResetCodeExpiresAt != nil && now.Before(*a.ResetCodeExpiresAt) {
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

// Create inserts a new account. Returns ErrEmailExists when the email is taken.
func (r *InMemoryRepository) Create(ctx context.Context, a Account) (Account, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	email := NormalizeEmail(a.Email)
	if _, ok := r.byEmail[email]; ok {
		return Account{}, ErrEmailExists
	}
	r.accounts[a.ID] = a
	r.byEmail[email] = a.ID
	return a, nil
}

// Save replaces the stored record for the account's id
func (r *InMemoryRepository) Save(ctx context.Context, a Account) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	old, ok := r.accounts[a.ID]
	if !ok {
		return ErrAccountNotFound
	}
	if NormalizeEmail(old.Email) != NormalizeEmail(a.Email) {
		delete(r.byEmail, NormalizeEmail(old.Email))
		r.byEmail[NormalizeEmail(a.Email)] = a.ID
	}
	r.accounts[a.ID] = a
	return nil
}

// CreateWithReferral creates the account and credits the referrer atomically
// under the repository lock.
func (r *InMemoryRepository) CreateWithReferral(ctx context.Context, a Account, referralCode string, credit int) (Account, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var referrer *Account
	for id := range r.accounts {
		acct := r.accounts[id]
		if acct.ReferralCode == referralCode {
			referrer = &acct
			break
		}
	}
	if referrer == nil {
		return Account{}, ErrReferrerNotFound
	}

	email := NormalizeEmail(a.Email)
	if _, ok := r.byEmail[email]; ok {
		return Account{}, ErrEmailExists
	}

	a.ReferredBy = &referrer.ID
	r.accounts[a.ID] = a
	r.byEmail[email] = a.ID

	referrer.ReferralCredits += credit
	referrer.UpdatedAt = a.CreatedAt
	r.accounts[referrer.ID] = *referrer
	return a, nil
}
