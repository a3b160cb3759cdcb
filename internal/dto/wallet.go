package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferRequest moves funds from the authenticated sender to a receiver
// phone. IdempotencyKey is optional; the X-Idempotency-Key header takes
// precedence when both are present.
type TransferRequest struct {
	Receiver       string          `json:"receiver" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	PIN            string          `json:"pin" binding:"required"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

// TransferResponse reports the committed (or idempotently replayed) transfer.
type TransferResponse struct {
	Ref    string          `json:"ref"`
	Amount decimal.Decimal `json:"amount"`
}

// BalanceResponse carries the account's spendable balance, and the e-float
// for agent accounts.
type BalanceResponse struct {
	Balance      decimal.Decimal  `json:"balance"`
	FloatBalance *decimal.Decimal `json:"floatBalance,omitempty"`
}

// PaymentRequest pays a service or bill from the authenticated account.
type PaymentRequest struct {
	Service        string          `json:"service" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	PIN            string          `json:"pin" binding:"required"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

// PaymentResponse reports the committed (or idempotently replayed) payment.
type PaymentResponse struct {
	Ref     string          `json:"ref"`
	Service string          `json:"service"`
	Amount  decimal.Decimal `json:"amount"`
}

// ChangePINRequest replaces the account's PIN after verifying the current one.
type ChangePINRequest struct {
	CurrentPIN string `json:"currentPin" binding:"required"`
	NewPIN     string `json:"newPin" binding:"required"`
}

// StatementItem is one ledger entry in an account statement.
type StatementItem struct {
	Ref          string          `json:"ref"`
	Direction    string          `json:"direction"`
	BalanceKind  string          `json:"balanceKind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// StatementResponse is a paginated ledger statement, newest first.
type StatementResponse struct {
	Items []StatementItem `json:"items"`
	Count int             `json:"count"`
}

// HistoryItem is one transaction as seen from the requesting account.
type HistoryItem struct {
	Ref       string          `json:"ref"`
	Type      string          `json:"type"`
	Direction string          `json:"direction"` // IN or OUT
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

// HistoryResponse lists recent transactions involving the account.
type HistoryResponse struct {
	Items []HistoryItem `json:"items"`
}
