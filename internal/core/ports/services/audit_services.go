package services

import (
	"context"

	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
)

// AuditSink records audit events. It never raises back into the caller;
// failures are swallowed and logged at the boundary.
type AuditSink interface {
	Record(ctx context.Context, event domain.AuditEvent)
}
