package repositories

import (
	"context"
	"time"

	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
)

// OTPRepository persists one-time-code challenges, at most one live per phone.
type OTPRepository interface {
	// UpsertChallenge replaces any existing challenge for the phone.
	UpsertChallenge(ctx context.Context, challenge domain.OTPChallenge) error

	// FindChallengeByPhone returns the live challenge for a phone, or
	// apperrors.ErrNotFound.
	FindChallengeByPhone(ctx context.Context, phone string) (*domain.OTPChallenge, error)

	// UpdateChallenge persists attempt/block state after a failed guess.
	UpdateChallenge(ctx context.Context, challenge domain.OTPChallenge) error

	// ConsumeChallenge deletes the challenge after successful verification.
	ConsumeChallenge(ctx context.Context, phone string) error

	// PurgeStale deletes challenges that are expired or consumed, returning
	// the number removed.
	PurgeStale(ctx context.Context, now time.Time) (int64, error)
}
