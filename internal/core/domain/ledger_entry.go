package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryDirection indicates whether a ledger entry debits or credits its account.
type EntryDirection string

const (
	Debit  EntryDirection = "DEBIT"
	Credit EntryDirection = "CREDIT"
)

// BalanceKind selects which of an account's two balances a ledger entry moved.
type BalanceKind string

const (
	BalanceMain  BalanceKind = "BALANCE"
	BalanceFloat BalanceKind = "FLOAT"
)

// LedgerEntry is the audit-grade mirror of one account's balance change.
// Every committed transaction produces paired debit/credit entries whose
// BalanceAfter equals the owning balance at the instant of the mutation.
type LedgerEntry struct {
	EntryID        string          `json:"entryID"`
	TransactionRef string          `json:"transactionRef"`
	AccountID      string          `json:"accountID"`
	Direction      EntryDirection  `json:"direction"`
	BalanceKind    BalanceKind     `json:"balanceKind"`
	Amount         decimal.Decimal `json:"amount"`
	BalanceAfter   decimal.Decimal `json:"balanceAfter"`
	CreatedAt      time.Time       `json:"createdAt"`
}
