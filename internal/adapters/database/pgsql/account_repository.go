package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mzwallet/mz_wallet_backend/internal/apperrors"
	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	portsrepo "github.com/mzwallet/mz_wallet_backend/internal/core/ports/repositories"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

const accountColumns = `account_id, phone, role, balance, float_balance, credential_hash, fail_count, locked_until, active, kyc_level, created_at, updated_at`

type PgxAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new repository for account data.
func NewAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRepository {
	return &PgxAccountRepository{pool: pool}
}

var _ portsrepo.AccountRepository = (*PgxAccountRepository)(nil)

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	err := row.Scan(
		&acc.AccountID,
		&acc.Phone,
		&acc.Role,
		&acc.Balance,
		&acc.FloatBalance,
		&acc.CredentialHash,
		&acc.FailCount,
		&acc.LockedUntil,
		&acc.Active,
		&acc.KYCLevel,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan account row: %w", err)
	}
	return &acc, nil
}

// SaveAccount inserts a new account row.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := r.pool.Exec(ctx, query,
		account.AccountID,
		account.Phone,
		account.Role,
		account.Balance,
		account.FloatBalance,
		account.CredentialHash,
		account.FailCount,
		account.LockedUntil,
		account.Active,
		account.KYCLevel,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: phone %s", apperrors.ErrDuplicate, account.Phone)
		}
		return fmt.Errorf("failed to insert account %s: %w", account.AccountID, err)
	}
	return nil
}

// FindAccountByPhone retrieves an account by its canonical phone number.
func (r *PgxAccountRepository) FindAccountByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE phone = $1;`
	return scanAccount(r.pool.QueryRow(ctx, query, phone))
}

// FindAccountByID retrieves an account by its storage ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	return scanAccount(r.pool.QueryRow(ctx, query, accountID))
}

// EnsureAccount inserts the account unless its phone is already registered
// and returns the current row either way. The ON CONFLICT clause makes
// concurrent provisioning of the same phone safe.
func (r *PgxAccountRepository) EnsureAccount(ctx context.Context, account domain.Account) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (phone) DO NOTHING;
	`
	_, err := r.pool.Exec(ctx, query,
		account.AccountID,
		account.Phone,
		account.Role,
		account.Balance,
		account.FloatBalance,
		account.CredentialHash,
		account.FailCount,
		account.LockedUntil,
		account.Active,
		account.KYCLevel,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure account for %s: %w", account.Phone, err)
	}
	return r.FindAccountByPhone(ctx, account.Phone)
}

// UpdateCredential replaces the account's PIN hash.
func (r *PgxAccountRepository) UpdateCredential(ctx context.Context, accountID string, credentialHash string, now time.Time) error {
	query := `UPDATE accounts SET credential_hash = $2, updated_at = $3 WHERE account_id = $1;`
	tag, err := r.pool.Exec(ctx, query, accountID, credentialHash, now)
	if err != nil {
		return fmt.Errorf("failed to update credential for account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateLockout persists brute-force state after a PIN check.
func (r *PgxAccountRepository) UpdateLockout(ctx context.Context, accountID string, failCount int, lockedUntil *time.Time, now time.Time) error {
	query := `UPDATE accounts SET fail_count = $2, locked_until = $3, updated_at = $4 WHERE account_id = $1;`
	tag, err := r.pool.Exec(ctx, query, accountID, failCount, lockedUntil, now)
	if err != nil {
		return fmt.Errorf("failed to update lockout state for account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// PromoteToAgent sets the AGENT role, credential and float in one update.
func (r *PgxAccountRepository) PromoteToAgent(ctx context.Context, accountID string, credentialHash string, floatBalance decimal.Decimal, now time.Time) error {
	query := `
		UPDATE accounts
		SET role = $2, credential_hash = $3, float_balance = $4, updated_at = $5
		WHERE account_id = $1;
	`
	tag, err := r.pool.Exec(ctx, query, accountID, domain.RoleAgent, credentialHash, floatBalance, now)
	if err != nil {
		return fmt.Errorf("failed to promote account %s to agent: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
