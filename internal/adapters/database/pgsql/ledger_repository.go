package pgsql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mzwallet/mz_wallet_backend/internal/apperrors"
	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	portsrepo "github.com/mzwallet/mz_wallet_backend/internal/core/ports/repositories"
)

const transactionColumns = `ref, type, from_account_id, to_account_id, amount, status, metadata, created_at`

type PgxLedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new repository for transaction and ledger data.
func NewLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepository {
	return &PgxLedgerRepository{pool: pool}
}

var _ portsrepo.LedgerRepository = (*PgxLedgerRepository)(nil)

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := row.Scan(
		&tx.Ref,
		&tx.Type,
		&tx.FromAccountID,
		&tx.ToAccountID,
		&tx.Amount,
		&tx.Status,
		&tx.Metadata,
		&tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan transaction row: %w", err)
	}
	return &tx, nil
}

// balanceState tracks one locked account's balances while legs are applied.
type balanceState struct {
	balance      decimal.Decimal
	floatBalance decimal.Decimal
	dirty        bool
}

// ApplyMovement commits a movement in one database transaction: idempotency
// lookup, deterministic FOR UPDATE locks, in-transaction balance re-check,
// transaction + ledger rows, balance updates, commit. The UNIQUE constraint
// on transactions.ref is the authoritative duplicate guard; when a
// concurrent request wins the race this loser re-reads and returns the
// winner's committed outcome.
func (r *PgxLedgerRepository) ApplyMovement(ctx context.Context, mv domain.Movement) (*domain.Transaction, bool, error) {
	if len(mv.Transactions) == 0 || len(mv.Legs) == 0 {
		return nil, false, fmt.Errorf("%w: movement must carry transactions and legs", apperrors.ErrValidation)
	}

	// Read committed: a request that blocks on FOR UPDATE behind a
	// concurrent winner must re-read the committed balances (and reach the
	// unique-ref guard) instead of failing with a serialization error.
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to begin transaction: %v", apperrors.ErrInternal, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// 1. Idempotency lookup. A committed transaction with this ref means the
	// operation already happened; return its outcome without reapplying.
	existing, err := scanTransaction(tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE ref = $1;`, mv.Ref))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, fmt.Errorf("%w: idempotency lookup failed: %v", apperrors.ErrInternal, err)
	}

	// 2. Lock involved accounts in deterministic order to prevent deadlock.
	accountIDs := uniqueAccountIDs(mv.Legs)
	sort.Strings(accountIDs)

	states := make(map[string]*balanceState, len(accountIDs))
	for _, id := range accountIDs {
		var st balanceState
		err := tx.QueryRow(ctx, `SELECT balance, float_balance FROM accounts WHERE account_id = $1 FOR UPDATE;`, id).
			Scan(&st.balance, &st.floatBalance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, false, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
			}
			return nil, false, fmt.Errorf("%w: lock acquisition failed: %v", apperrors.ErrInternal, err)
		}
		states[id] = &st
	}

	// 3. Apply legs against the locked balances, building ledger entries
	// whose balance_after reflects each account's balance at that instant.
	// The non-negative check here is the authoritative one.
	now := time.Now().UTC()
	entries, err := applyLegs(states, mv.Legs, now)
	if err != nil {
		return nil, false, err
	}

	// 4. Insert transaction rows. A unique violation on ref means a
	// concurrent request committed first; surface the winner's outcome.
	batch := &pgx.Batch{}
	queueTransactionInserts(batch, mv.Transactions)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			_ = tx.Rollback(ctx)
			winner, werr := r.FindTransactionByRef(ctx, mv.Ref)
			if werr != nil {
				return nil, false, fmt.Errorf("%w: lost idempotency race but winner not readable: %v", apperrors.ErrInternal, werr)
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("%w: failed to insert transactions for %s: %v", apperrors.ErrInternal, mv.Ref, err)
	}

	// 5. Insert ledger entries.
	entryBatch := &pgx.Batch{}
	entryQuery := `
		INSERT INTO ledger_entries (entry_id, transaction_ref, account_id, direction, balance_kind, amount, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	for _, e := range entries {
		entryBatch.Queue(entryQuery, e.EntryID, e.TransactionRef, e.AccountID, e.Direction, e.BalanceKind, e.Amount, e.BalanceAfter, e.CreatedAt)
	}
	if err := tx.SendBatch(ctx, entryBatch).Close(); err != nil {
		return nil, false, fmt.Errorf("%w: failed to insert ledger entries for %s: %v", apperrors.ErrInternal, mv.Ref, err)
	}

	// 6. Persist the mutated balances.
	for _, id := range accountIDs {
		st := states[id]
		if !st.dirty {
			continue
		}
		_, err := tx.Exec(ctx, `UPDATE accounts SET balance = $2, float_balance = $3, updated_at = $4 WHERE account_id = $1;`,
			id, st.balance, st.floatBalance, now)
		if err != nil {
			return nil, false, fmt.Errorf("%w: failed to update balances for account %s: %v", apperrors.ErrInternal, id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("%w: failed to commit movement %s: %v", apperrors.ErrInternal, mv.Ref, err)
	}

	primary := mv.Transactions[0]
	return &primary, true, nil
}

// FindTransactionByRef retrieves a committed transaction by its ref.
func (r *PgxLedgerRepository) FindTransactionByRef(ctx context.Context, ref string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ref = $1;`
	return scanTransaction(r.pool.QueryRow(ctx, query, ref))
}

// ListEntriesByAccount retrieves ledger entries for an account, newest first.
func (r *PgxLedgerRepository) ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.LedgerEntry, error) {
	query := `
		SELECT entry_id, transaction_ref, account_id, direction, balance_kind, amount, balance_after, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, entry_id DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries for account %s: %w", accountID, err)
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.EntryID, &e.TransactionRef, &e.AccountID, &e.Direction, &e.BalanceKind, &e.Amount, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entry rows: %w", err)
	}
	return entries, nil
}

// ListTransactionsByAccount retrieves transactions where the account is on
// either leg, newest first.
func (r *PgxLedgerRepository) ListTransactionsByAccount(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at DESC, ref DESC
		LIMIT $2;
	`
	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		var txn domain.Transaction
		if err := rows.Scan(&txn.Ref, &txn.Type, &txn.FromAccountID, &txn.ToAccountID, &txn.Amount, &txn.Status, &txn.Metadata, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}

// applyLegs mutates the locked balance states leg by leg and returns the
// ledger entries to insert. Debits that would take any balance negative
// abort the whole movement.
func applyLegs(states map[string]*balanceState, legs []domain.MovementLeg, now time.Time) ([]domain.LedgerEntry, error) {
	entries := make([]domain.LedgerEntry, 0, len(legs))
	for _, leg := range legs {
		st, ok := states[leg.AccountID]
		if !ok {
			return nil, fmt.Errorf("%w: leg references unlocked account %s", apperrors.ErrInternal, leg.AccountID)
		}
		var current decimal.Decimal
		if leg.BalanceKind == domain.BalanceFloat {
			current = st.floatBalance
		} else {
			current = st.balance
		}

		next := current
		if leg.Direction == domain.Debit {
			next = current.Sub(leg.Amount)
		} else {
			next = current.Add(leg.Amount)
		}
		if next.IsNegative() {
			if leg.BalanceKind == domain.BalanceFloat {
				return nil, fmt.Errorf("%w", apperrors.ErrInsufficientFloat)
			}
			return nil, fmt.Errorf("%w", apperrors.ErrInsufficientFunds)
		}

		if leg.BalanceKind == domain.BalanceFloat {
			st.floatBalance = next
		} else {
			st.balance = next
		}
		st.dirty = true

		entries = append(entries, domain.LedgerEntry{
			EntryID:        uuid.NewString(),
			TransactionRef: leg.TransactionRef,
			AccountID:      leg.AccountID,
			Direction:      leg.Direction,
			BalanceKind:    leg.BalanceKind,
			Amount:         leg.Amount,
			BalanceAfter:   next,
			CreatedAt:      now,
		})
	}
	return entries, nil
}

// queueTransactionInserts queues one INSERT per transaction row. Metadata is
// bound as a plain string: the column is NOT NULL, so an empty value must go
// over the wire as '' rather than SQL NULL.
func queueTransactionInserts(batch *pgx.Batch, txns []domain.Transaction) {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	for _, txn := range txns {
		batch.Queue(query,
			txn.Ref,
			txn.Type,
			txn.FromAccountID,
			txn.ToAccountID,
			txn.Amount,
			txn.Status,
			txn.Metadata,
			txn.CreatedAt,
		)
	}
}

func uniqueAccountIDs(legs []domain.MovementLeg) []string {
	seen := make(map[string]struct{}, len(legs))
	ids := make([]string, 0, len(legs))
	for _, leg := range legs {
		if _, ok := seen[leg.AccountID]; !ok {
			seen[leg.AccountID] = struct{}{}
			ids = append(ids, leg.AccountID)
		}
	}
	return ids
}
