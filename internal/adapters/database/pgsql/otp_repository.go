package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mzwallet/mz_wallet_backend/internal/apperrors"
	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	portsrepo "github.com/mzwallet/mz_wallet_backend/internal/core/ports/repositories"
)

type PgxOTPRepository struct {
	pool *pgxpool.Pool
}

// NewOTPRepository creates a new repository for OTP challenge data.
func NewOTPRepository(pool *pgxpool.Pool) portsrepo.OTPRepository {
	return &PgxOTPRepository{pool: pool}
}

var _ portsrepo.OTPRepository = (*PgxOTPRepository)(nil)

// UpsertChallenge replaces any existing challenge for the phone. Phone is
// the primary key, so at most one challenge is ever live.
func (r *PgxOTPRepository) UpsertChallenge(ctx context.Context, challenge domain.OTPChallenge) error {
	query := `
		INSERT INTO otp_challenges (phone, code, created_at, expires_at, attempts, max_attempts, blocked_until, consumed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (phone) DO UPDATE SET
			code = EXCLUDED.code,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			attempts = EXCLUDED.attempts,
			max_attempts = EXCLUDED.max_attempts,
			blocked_until = EXCLUDED.blocked_until,
			consumed = EXCLUDED.consumed;
	`
	_, err := r.pool.Exec(ctx, query,
		challenge.Phone,
		challenge.Code,
		challenge.CreatedAt,
		challenge.ExpiresAt,
		challenge.Attempts,
		challenge.MaxAttempts,
		challenge.BlockedUntil,
		challenge.Consumed,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert otp challenge for %s: %w", challenge.Phone, err)
	}
	return nil
}

// FindChallengeByPhone retrieves the live challenge for a phone.
func (r *PgxOTPRepository) FindChallengeByPhone(ctx context.Context, phone string) (*domain.OTPChallenge, error) {
	query := `
		SELECT phone, code, created_at, expires_at, attempts, max_attempts, blocked_until, consumed
		FROM otp_challenges
		WHERE phone = $1 AND consumed = FALSE;
	`
	var ch domain.OTPChallenge
	err := r.pool.QueryRow(ctx, query, phone).Scan(
		&ch.Phone,
		&ch.Code,
		&ch.CreatedAt,
		&ch.ExpiresAt,
		&ch.Attempts,
		&ch.MaxAttempts,
		&ch.BlockedUntil,
		&ch.Consumed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find otp challenge for %s: %w", phone, err)
	}
	return &ch, nil
}

// UpdateChallenge persists attempt/block state after a failed guess.
func (r *PgxOTPRepository) UpdateChallenge(ctx context.Context, challenge domain.OTPChallenge) error {
	query := `
		UPDATE otp_challenges
		SET attempts = $2, blocked_until = $3
		WHERE phone = $1;
	`
	tag, err := r.pool.Exec(ctx, query, challenge.Phone, challenge.Attempts, challenge.BlockedUntil)
	if err != nil {
		return fmt.Errorf("failed to update otp challenge for %s: %w", challenge.Phone, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ConsumeChallenge deletes the challenge after successful verification.
func (r *PgxOTPRepository) ConsumeChallenge(ctx context.Context, phone string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM otp_challenges WHERE phone = $1;`, phone)
	if err != nil {
		return fmt.Errorf("failed to consume otp challenge for %s: %w", phone, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// PurgeStale deletes consumed challenges and expired ones whose block window
// has also passed. Blocked rows are kept so verification keeps reporting the
// block instead of "not found".
func (r *PgxOTPRepository) PurgeStale(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM otp_challenges
		WHERE consumed = TRUE
		   OR (expires_at < $1 AND (blocked_until IS NULL OR blocked_until < $1));
	`
	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge stale otp challenges: %w", err)
	}
	return tag.RowsAffected(), nil
}
