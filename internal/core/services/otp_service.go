package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mzwallet/mz_wallet_backend/internal/apperrors"
	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	portsrepo "github.com/mzwallet/mz_wallet_backend/internal/core/ports/repositories"
	portssvc "github.com/mzwallet/mz_wallet_backend/internal/core/ports/services"
	"github.com/mzwallet/mz_wallet_backend/internal/middleware"
	"github.com/mzwallet/mz_wallet_backend/internal/utils"
)

// OTPConfig carries the challenge parameters.
type OTPConfig struct {
	TTL           time.Duration
	CodeDigits    int
	MaxAttempts   int
	BlockDuration time.Duration
}

// otpService manages one-time-code challenges. OTP attempt counters are
// independent from PIN lockout state; the two gates never touch each other.
type otpService struct {
	otpRepo portsrepo.OTPRepository
	sender  portssvc.CodeSender
	cfg     OTPConfig
}

// NewOTPService creates a new OTP challenge manager.
func NewOTPService(otpRepo portsrepo.OTPRepository, sender portssvc.CodeSender, cfg OTPConfig) portssvc.OTPSvcFacade {
	if cfg.CodeDigits <= 0 {
		cfg.CodeDigits = 6
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = 10 * time.Minute
	}
	return &otpService{otpRepo: otpRepo, sender: sender, cfg: cfg}
}

var _ portssvc.OTPSvcFacade = (*otpService)(nil)

// Issue generates a fresh code and replaces any existing challenge for the
// phone. A reissue clears attempts and any block. The code is handed to the
// delivery capability; delivery failures are logged, never surfaced.
func (s *otpService) Issue(ctx context.Context, phone string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	code, err := utils.GenerateOTPCode(s.cfg.CodeDigits)
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	now := time.Now().UTC()
	challenge := domain.OTPChallenge{
		Phone:       phone,
		Code:        code,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.TTL),
		Attempts:    0,
		MaxAttempts: s.cfg.MaxAttempts,
	}

	if err := s.otpRepo.UpsertChallenge(ctx, challenge); err != nil {
		logger.Error("Failed to store OTP challenge", slog.String("error", err.Error()))
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	// Fire-and-forget delivery.
	if err := s.sender.Send(ctx, phone, code); err != nil {
		logger.Warn("OTP delivery failed", slog.String("error", err.Error()))
	}

	logger.Info("OTP challenge issued", slog.Time("expires_at", challenge.ExpiresAt))
	return nil
}

// Verify checks a candidate code against the live challenge for the phone.
func (s *otpService) Verify(ctx context.Context, phone, candidate string) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now().UTC()

	challenge, err := s.otpRepo.FindChallengeByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: otp not found", apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to load challenge: %w", err)
	}

	if challenge.IsBlocked(now) {
		return fmt.Errorf("%w: otp temporarily blocked", apperrors.ErrLocked)
	}

	if challenge.IsExpired(now) {
		return fmt.Errorf("%w: otp expired", apperrors.ErrAuth)
	}

	if challenge.Code == candidate {
		if err := s.otpRepo.ConsumeChallenge(ctx, phone); err != nil {
			logger.Error("Failed to consume OTP challenge", slog.String("error", err.Error()))
			return fmt.Errorf("failed to consume challenge: %w", err)
		}
		return nil
	}

	challenge.Attempts++
	if challenge.Attempts >= challenge.MaxAttempts {
		blockedUntil := now.Add(s.cfg.BlockDuration)
		challenge.BlockedUntil = &blockedUntil
		logger.Warn("OTP challenge blocked after repeated failures", slog.Time("blocked_until", blockedUntil))
	}
	if err := s.otpRepo.UpdateChallenge(ctx, *challenge); err != nil {
		logger.Error("Failed to record OTP attempt", slog.String("error", err.Error()))
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	return fmt.Errorf("%w: invalid otp code", apperrors.ErrAuth)
}
