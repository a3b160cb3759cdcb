package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mzwallet/mz_wallet_backend/internal/apperrors"
	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	portsrepo "github.com/mzwallet/mz_wallet_backend/internal/core/ports/repositories"
	portssvc "github.com/mzwallet/mz_wallet_backend/internal/core/ports/services"
	"github.com/mzwallet/mz_wallet_backend/internal/middleware"
	"github.com/mzwallet/mz_wallet_backend/internal/utils"
)

// LockoutConfig carries the PIN brute-force parameters.
type LockoutConfig struct {
	MaxFails     int
	LockDuration time.Duration
}

// authService handles phone-based login and PIN credentials. It owns the
// lockout policy: the policy gates entry into money movement but is not part
// of the movement transaction itself.
type authService struct {
	accountRepo portsrepo.AccountRepository
	otpSvc      portssvc.OTPSvcFacade
	tokens      portssvc.TokenIssuer
	normalizer  *utils.PhoneNormalizer
	audit       portssvc.AuditSink
	defaultPIN  string
	lockout     LockoutConfig
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	accountRepo portsrepo.AccountRepository,
	otpSvc portssvc.OTPSvcFacade,
	tokens portssvc.TokenIssuer,
	normalizer *utils.PhoneNormalizer,
	audit portssvc.AuditSink,
	defaultPIN string,
	lockout LockoutConfig,
) portssvc.AuthSvcFacade {
	if lockout.MaxFails <= 0 {
		lockout.MaxFails = 3
	}
	if lockout.LockDuration <= 0 {
		lockout.LockDuration = 5 * time.Minute
	}
	return &authService{
		accountRepo: accountRepo,
		otpSvc:      otpSvc,
		tokens:      tokens,
		normalizer:  normalizer,
		audit:       audit,
		defaultPIN:  defaultPIN,
		lockout:     lockout,
	}
}

var _ portssvc.AuthSvcFacade = (*authService)(nil)

// newDefaultAccount builds an auto-provisioned customer account. The default
// PIN is a deliberate low-friction onboarding behavior; the customer is
// expected to change it after first login.
func (s *authService) newDefaultAccount(phone string, now time.Time) (domain.Account, error) {
	hash, err := utils.HashPIN(s.defaultPIN)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to hash default credential: %w", err)
	}
	return domain.Account{
		AccountID:      uuid.NewString(),
		Phone:          phone,
		Role:           domain.RoleCustomer,
		Balance:        decimal.Zero,
		FloatBalance:   decimal.Zero,
		CredentialHash: hash,
		Active:         true,
		KYCLevel:       0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// RequestOTP normalizes the phone, self-registers unknown numbers, and
// issues an OTP challenge.
func (s *authService) RequestOTP(ctx context.Context, rawPhone string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	phone, err := s.normalizer.Normalize(rawPhone)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	fresh, err := s.newDefaultAccount(phone, now)
	if err != nil {
		return err
	}
	account, err := s.accountRepo.EnsureAccount(ctx, fresh)
	if err != nil {
		logger.Error("Failed to ensure account for OTP request", slog.String("error", err.Error()))
		return fmt.Errorf("failed to provision account: %w", err)
	}
	if account.AccountID == fresh.AccountID {
		s.audit.Record(ctx, domain.AuditEvent{AccountID: &account.AccountID, Action: "account_self_registered"})
	}

	return s.otpSvc.Issue(ctx, phone)
}

// LoginWithOTP verifies the challenge and returns a bearer token.
func (s *authService) LoginWithOTP(ctx context.Context, rawPhone, code string) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	phone, err := s.normalizer.Normalize(rawPhone)
	if err != nil {
		return "", err
	}

	if err := s.otpSvc.Verify(ctx, phone, code); err != nil {
		return "", err
	}

	account, err := s.accountRepo.FindAccountByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", fmt.Errorf("%w: account not found", apperrors.ErrNotFound)
		}
		return "", fmt.Errorf("failed to load account: %w", err)
	}

	token, err := s.tokens.Issue(phone)
	if err != nil {
		logger.Error("Failed to issue token", slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEvent{AccountID: &account.AccountID, Action: "login"})
	return token, nil
}

// VerifyPIN applies the lockout policy around a credential check. Wrong PIN
// increments the failure count; reaching the threshold locks the account for
// the configured window and resets the counter. Success clears both.
func (s *authService) VerifyPIN(ctx context.Context, account *domain.Account, pin string) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now().UTC()

	if account.IsLocked(now) {
		return fmt.Errorf("%w: account locked until %s", apperrors.ErrLocked, account.LockedUntil.UTC().Format(time.RFC3339))
	}

	if account.CredentialHash != "" && utils.CheckPINHash(pin, account.CredentialHash) {
		if account.FailCount > 0 || account.LockedUntil != nil {
			if err := s.accountRepo.UpdateLockout(ctx, account.AccountID, 0, nil, now); err != nil {
				logger.Warn("Failed to reset lockout state", slog.String("error", err.Error()))
			}
			account.FailCount = 0
			account.LockedUntil = nil
		}
		return nil
	}

	failCount := account.FailCount + 1
	var lockedUntil *time.Time
	if failCount >= s.lockout.MaxFails {
		until := now.Add(s.lockout.LockDuration)
		lockedUntil = &until
		failCount = 0
		logger.Warn("Account locked after repeated PIN failures", slog.Time("locked_until", until))
	}
	if err := s.accountRepo.UpdateLockout(ctx, account.AccountID, failCount, lockedUntil, now); err != nil {
		logger.Error("Failed to persist lockout state", slog.String("error", err.Error()))
	}
	account.FailCount = failCount
	account.LockedUntil = lockedUntil

	s.audit.Record(ctx, domain.AuditEvent{AccountID: &account.AccountID, Action: "pin_fail"})
	return fmt.Errorf("%w: wrong pin", apperrors.ErrAuth)
}

// ChangePIN verifies the current PIN and replaces it with a stronger one.
func (s *authService) ChangePIN(ctx context.Context, rawPhone, currentPIN, newPIN string) error {
	phone, err := s.normalizer.Normalize(rawPhone)
	if err != nil {
		return err
	}

	account, err := s.accountRepo.FindAccountByPhone(ctx, phone)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if err := s.VerifyPIN(ctx, account, currentPIN); err != nil {
		return err
	}

	if utils.IsWeakPIN(newPIN) {
		return fmt.Errorf("%w: pin must be 4 digits and not trivially guessable", apperrors.ErrValidation)
	}

	hash, err := utils.HashPIN(newPIN)
	if err != nil {
		return fmt.Errorf("failed to hash credential: %w", err)
	}
	if err := s.accountRepo.UpdateCredential(ctx, account.AccountID, hash, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEvent{AccountID: &account.AccountID, Action: "pin_changed"})
	return nil
}

// SeedAgent promotes an account to AGENT with a fresh PIN and starting
// e-float, creating the account first when unknown.
func (s *authService) SeedAgent(ctx context.Context, rawPhone, pin string, floatAmount decimal.Decimal) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	phone, err := s.normalizer.Normalize(rawPhone)
	if err != nil {
		return err
	}
	if floatAmount.IsNegative() {
		return fmt.Errorf("%w: float amount cannot be negative", apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	fresh, err := s.newDefaultAccount(phone, now)
	if err != nil {
		return err
	}
	account, err := s.accountRepo.EnsureAccount(ctx, fresh)
	if err != nil {
		return fmt.Errorf("failed to provision agent account: %w", err)
	}

	hash, err := utils.HashPIN(pin)
	if err != nil {
		return fmt.Errorf("failed to hash credential: %w", err)
	}
	if err := s.accountRepo.PromoteToAgent(ctx, account.AccountID, hash, floatAmount, now); err != nil {
		return fmt.Errorf("failed to promote agent: %w", err)
	}

	logger.Info("Agent seeded", slog.String("account_id", account.AccountID))
	s.audit.Record(ctx, domain.AuditEvent{AccountID: &account.AccountID, Action: "agent_seeded", Amount: &floatAmount})
	return nil
}
