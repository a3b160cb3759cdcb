package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a committed money movement.
type TransactionType string

const (
	TypeTransfer   TransactionType = "TRANSFER"
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeCashout    TransactionType = "CASHOUT"
	TypeCommission TransactionType = "COMMISSION"
	TypePayment    TransactionType = "PAYMENT"
)

// TransactionStatus is the recorded outcome of a transaction. Failed attempts
// are not persisted; only committed operations produce rows.
type TransactionStatus string

const (
	StatusOK     TransactionStatus = "OK"
	StatusFailed TransactionStatus = "FAILED"
)

// Transaction is the immutable, append-only record of one committed money
// movement. Ref is the globally unique idempotency key; the store enforces
// its uniqueness.
type Transaction struct {
	Ref           string            `json:"ref"`
	Type          TransactionType   `json:"type"`
	FromAccountID *string           `json:"fromAccountID,omitempty"` // nil for system-originated legs
	ToAccountID   *string           `json:"toAccountID,omitempty"`   // nil means platform owner (commission legs)
	Amount        decimal.Decimal   `json:"amount"`
	Status        TransactionStatus `json:"status"`
	Metadata      string            `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
