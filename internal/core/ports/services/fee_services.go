package services

import (
	"github.com/shopspring/decimal"
)

// FeePolicy computes the fee owed on a cash-out and its owner/agent split.
// Two interchangeable strategies exist (percentage-with-caps and fixed
// tiers); the engine consumes either through this one interface.
type FeePolicy interface {
	// Quote returns the fee for an operation amount, or
	// apperrors.ErrAmountOutOfRange when the policy rejects the amount.
	Quote(amount decimal.Decimal) (decimal.Decimal, error)

	// Split divides a fee between platform owner and agent. The agent share
	// is computed as the remainder so the shares always sum exactly to the
	// fee.
	Split(fee decimal.Decimal) (ownerShare, agentShare decimal.Decimal)
}
