package repositories

import (
	"context"
	"time"

	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AccountRepository persists accounts. Lookups are by canonical phone or by
// storage ID; there is no hard delete, only Active=false.
type AccountRepository interface {
	// SaveAccount inserts a new account. Returns apperrors.ErrDuplicate when
	// the phone is already registered.
	SaveAccount(ctx context.Context, account domain.Account) error

	// FindAccountByPhone returns the account for a canonical phone, or
	// apperrors.ErrNotFound.
	FindAccountByPhone(ctx context.Context, phone string) (*domain.Account, error)

	// FindAccountByID returns the account by storage ID, or apperrors.ErrNotFound.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// EnsureAccount inserts the given account unless one already exists for
	// its phone, and returns the current row either way. Used for
	// auto-provisioning receivers and self-registration.
	EnsureAccount(ctx context.Context, account domain.Account) (*domain.Account, error)

	// UpdateCredential replaces the account's PIN hash.
	UpdateCredential(ctx context.Context, accountID string, credentialHash string, now time.Time) error

	// UpdateLockout persists brute-force state after a PIN check.
	UpdateLockout(ctx context.Context, accountID string, failCount int, lockedUntil *time.Time, now time.Time) error

	// PromoteToAgent sets the AGENT role, credential and float in one update.
	PromoteToAgent(ctx context.Context, accountID string, credentialHash string, floatBalance decimal.Decimal, now time.Time) error
}
