package pgsql

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	portsrepo "github.com/mzwallet/mz_wallet_backend/internal/core/ports/repositories"
)

type PgxAuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new repository for audit events.
func NewAuditRepository(pool *pgxpool.Pool) portsrepo.AuditRepository {
	return &PgxAuditRepository{pool: pool}
}

var _ portsrepo.AuditRepository = (*PgxAuditRepository)(nil)

// RecordEvent appends one audit row. Rows are never updated or deleted.
func (r *PgxAuditRepository) RecordEvent(ctx context.Context, event domain.AuditEvent) error {
	query := `
		INSERT INTO audit_logs (log_id, account_id, action, amount, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	// metadata is NOT NULL; an empty value must bind as '' rather than NULL.
	_, err := r.pool.Exec(ctx, query, uuid.NewString(), event.AccountID, event.Action, event.Amount, event.Metadata, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record audit event %q: %w", event.Action, err)
	}
	return nil
}
