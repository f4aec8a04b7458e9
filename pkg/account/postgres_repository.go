package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, email, password_hash, role, first_name, last_name, phone, country,
	email_verified, verify_code, verify_code_expires_at,
	reset_code, reset_code_expires_at,
	two_factor_state, two_factor_secret,
	premium, referral_code, referral_credits, referred_by,
	created_at, updated_at`

// PostgresRepository implements Repository backed by PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL account repository
func NewPostgresRepository(db *pgxpool.Pool) (*PostgresRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	return &PostgresRepository{db: db}, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.FirstName, &a.LastName, &a.Phone, &a.Country,
		&a.EmailVerified, &a.VerifyCode, &a.VerifyCodeExpiresAt,
		&a.ResetCode, &a.ResetCodeExpiresAt,
		&a.TwoFactor.State, &a.TwoFactor.Secret,
		&a.Premium, &a.ReferralCode, &a.ReferralCredits, &a.ReferredBy,
		&a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// FindByEmail retrieves an account by its normalized email
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("failed to find account by email: %w", err)
	}
	return a, nil
}

// FindByID retrieves an account by its id
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("failed to find account by id: %w", err)
	}
	return a, nil
}

// FindByResetCode retrieves the account holding the given unexpired reset code
func (r *PostgresRepository) FindByResetCode(ctx context.Context, code string, now time.Time) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE reset_code = $1 AND reset_code_expires_at > $2`
	a, err := scanAccount(r.db.QueryRow(ctx, query, code, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("failed to find account by reset code: %w", err)
	}
	return a, nil
}

const insertAccountQuery = `INSERT INTO accounts (
		id, email, password_hash, role, first_name, last_name, phone, country,
		email_verified, verify_code, verify_code_expires_at,
		reset_code, reset_code_expires_at,
		two_factor_state, two_factor_secret,
		premium, referral_code, referral_credits, referred_by,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

func insertArgs(a Account) []interface{} {
	return []interface{}{
		a.ID, a.Email, a.PasswordHash, a.Role, a.FirstName, a.LastName, a.Phone, a.Country,
		a.EmailVerified, a.VerifyCode, a.VerifyCodeExpiresAt,
		a.ResetCode, a.ResetCodeExpiresAt,
		a.TwoFactor.State, a.TwoFactor.Secret,
		a.Premium, a.ReferralCode, a.ReferralCredits, a.ReferredBy,
		a.CreatedAt, a.UpdatedAt,
	}
}

// Create inserts a new account. Returns ErrEmailExists when the email is taken.
func (r *PostgresRepository) Create(ctx context.Context, a Account) (Account, error) {
	_, err := r.db.Exec(ctx, insertAccountQuery, insertArgs(a)...)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrEmailExists
		}
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return a, nil
}

// Save replaces the stored record for the account's id
func (r *PostgresRepository) Save(ctx context.Context, a Account) error {
	query := `UPDATE accounts SET
		email = $2, password_hash = $3, role = $4, first_name = $5, last_name = $6, phone = $7, country = $8,
		email_verified = $9, verify_code = $10, verify_code_expires_at = $11,
		reset_code = $12, reset_code_expires_at = $13,
		two_factor_state = $14, two_factor_secret = $15,
		premium = $16, referral_code = $17, referral_credits = $18, referred_by = $19,
		updated_at = $20
	WHERE id = $1`
	tag, err := r.db.Exec(ctx, query,
		a.ID, a.Email, a.PasswordHash, a.Role, a.FirstName, a.LastName, a.Phone, a.Country,
		a.EmailVerified, a.VerifyCode, a.VerifyCodeExpiresAt,
		a.ResetCode, a.ResetCodeExpiresAt,
		a.TwoFactor.State, a.TwoFactor.Secret,
		a.Premium, a.ReferralCode, a.ReferralCredits, a.ReferredBy,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CreateWithReferral inserts the new account and credits the referrer in one
// transaction.
func (r *PostgresRepository) CreateWithReferral(ctx context.Context, a Account, referralCode string, credit int) (Account, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var referrerID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM accounts WHERE referral_code = $1`, referralCode).Scan(&referrerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrReferrerNotFound
		}
		return Account{}, fmt.Errorf("failed to find referrer: %w", err)
	}

	a.ReferredBy = &referrerID
	if _, err := tx.Exec(ctx, insertAccountQuery, insertArgs(a)...); err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrEmailExists
		}
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE accounts SET referral_credits = referral_credits + $2, updated_at = $3 WHERE id = $1`,
		referrerID, credit, a.CreatedAt)
	if err != nil {
		return Account{}, fmt.Errorf("failed to credit referrer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
