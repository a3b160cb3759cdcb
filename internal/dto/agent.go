package dto

import "github.com/shopspring/decimal"

// DepositRequest moves funds from the authenticated agent's e-float into a
// customer's balance.
type DepositRequest struct {
	CustomerPhone  string          `json:"customerPhone" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

// CashoutRequest withdraws cash for a customer through the authenticated
// agent. The fee is computed by the configured fee policy.
type CashoutRequest struct {
	CustomerPhone  string          `json:"customerPhone" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

// DepositResponse reports the committed (or replayed) deposit.
type DepositResponse struct {
	Ref    string          `json:"ref"`
	Amount decimal.Decimal `json:"amount"`
}

// CashoutResponse reports the committed cashout and its fee split.
type CashoutResponse struct {
	Ref        string          `json:"ref"`
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	OwnerShare decimal.Decimal `json:"ownerShare"`
	AgentShare decimal.Decimal `json:"agentShare"`
}

// SeedAgentRequest promotes an account to AGENT with a PIN and starting
// float. Admin-only.
type SeedAgentRequest struct {
	Phone       string          `json:"phone" binding:"required"`
	PIN         string          `json:"pin" binding:"required"`
	FloatAmount decimal.Decimal `json:"floatAmount"`
}
