package services

import (
	"context"

	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	"github.com/mzwallet/mz_wallet_backend/internal/dto"
	"github.com/shopspring/decimal"
)

// LedgerSvcFacade is the money-movement engine. All movement
// operations share the same shape: idempotency check, precondition checks,
// atomic balance mutation with double-entry recording, commit. Precondition
// failures are typed apperrors values and leave no partial mutation.
type LedgerSvcFacade interface {
	// Transfer moves amount from sender's balance to receiver's balance.
	// The receiver is auto-provisioned when unknown. The PIN is verified
	// under the lockout policy before any mutation.
	Transfer(ctx context.Context, senderPhone, receiverPhone string, amount decimal.Decimal, pin, idempotencyRef string) (*domain.Transaction, error)

	// Pay debits the account for a service or bill payment. The debit has
	// no counterpart account; the transaction records the service code in
	// its metadata.
	Pay(ctx context.Context, phone, service string, amount decimal.Decimal, pin, idempotencyRef string) (*domain.Transaction, error)

	// AgentDeposit moves amount from the agent's e-float to the customer's
	// balance.
	AgentDeposit(ctx context.Context, agentPhone, customerPhone string, amount decimal.Decimal, idempotencyRef string) (*domain.Transaction, error)

	// AgentCashout debits the customer amount+fee, credits the agent's
	// e-float with the principal plus the agent's fee share, and records the
	// owner's share as a COMMISSION transaction with no destination account.
	AgentCashout(ctx context.Context, agentPhone, customerPhone string, amount decimal.Decimal, idempotencyRef string) (*dto.CashoutResponse, error)

	// Balance returns the account for a canonical phone, for balance display.
	Balance(ctx context.Context, phone string) (*domain.Account, error)

	// Statement returns the account's ledger entries, newest first.
	Statement(ctx context.Context, phone string, limit, offset int) ([]domain.LedgerEntry, error)

	// History returns recent transactions involving the account, together
	// with the account itself so callers can derive each transaction's
	// direction without a second lookup.
	History(ctx context.Context, phone string, limit int) (*domain.Account, []domain.Transaction, error)
}
