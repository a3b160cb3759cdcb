package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditEvent is one append-only audit record. Audit writes are best-effort;
// a failed write never affects the operation that emitted it.
type AuditEvent struct {
	AccountID *string
	Action    string
	Amount    *decimal.Decimal
	Metadata  string
	CreatedAt time.Time
}
