package domain

import "github.com/shopspring/decimal"

// MovementLeg is one balance mutation requested as part of a movement.
// Direction carries wallet semantics: DEBIT decreases the targeted balance,
// CREDIT increases it. BalanceAfter is computed by the store inside the same
// transaction that applies the mutation.
type MovementLeg struct {
	TransactionRef string
	AccountID      string
	Direction      EntryDirection
	BalanceKind    BalanceKind
	Amount         decimal.Decimal
}

// Movement bundles everything one engine operation commits atomically: the
// transaction rows keyed by Ref plus the balance legs and their ledger
// entries. Either all of it is applied or none of it is.
type Movement struct {
	Ref          string // idempotency key of the primary transaction
	Transactions []Transaction
	Legs         []MovementLeg
}
