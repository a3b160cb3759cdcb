package repositories

import (
	"context"

	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
)

// LedgerRepository applies money movements and reads the resulting records.
type LedgerRepository interface {
	// ApplyMovement commits the movement in one store transaction: it looks up
	// the idempotency ref, locks the involved accounts in deterministic
	// order, re-checks that no balance goes negative, writes transaction and
	// ledger rows, and updates balances. When a transaction with the same
	// ref is already committed (or wins a concurrent race on the UNIQUE ref
	// constraint), the winner's primary transaction is returned with
	// applied=false and nothing is mutated.
	ApplyMovement(ctx context.Context, mv domain.Movement) (tx *domain.Transaction, applied bool, err error)

	// FindTransactionByRef returns the committed transaction for a ref, or
	// apperrors.ErrNotFound.
	FindTransactionByRef(ctx context.Context, ref string) (*domain.Transaction, error)

	// ListEntriesByAccount returns ledger entries for an account, newest
	// first.
	ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.LedgerEntry, error)

	// ListTransactionsByAccount returns transactions where the account is
	// either leg, newest first.
	ListTransactionsByAccount(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)
}
