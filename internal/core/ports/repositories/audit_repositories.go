package repositories

import (
	"context"

	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
)

// AuditRepository appends audit events. Callers treat failures as non-fatal.
type AuditRepository interface {
	RecordEvent(ctx context.Context, event domain.AuditEvent) error
}
