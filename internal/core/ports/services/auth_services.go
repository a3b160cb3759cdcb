package services

import (
	"context"

	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AuthSvcFacade handles phone-based login and PIN credential management.
// OTP validation and PIN validation are separate gates with independent
// counters: an OTP block never touches PIN lockout state, and vice versa.
type AuthSvcFacade interface {
	// RequestOTP normalizes the phone, auto-provisions an account for
	// unknown numbers, and issues a challenge. The code travels only
	// through the delivery capability.
	RequestOTP(ctx context.Context, rawPhone string) error

	// LoginWithOTP verifies the challenge and returns a bearer token for
	// the canonical phone.
	LoginWithOTP(ctx context.Context, rawPhone, code string) (string, error)

	// VerifyPIN checks the PIN against the account's credential under the
	// lockout policy: a wrong PIN increments the failure count (locking the
	// account at the threshold), a correct one resets it. Locked accounts
	// fail fast without consuming an attempt.
	VerifyPIN(ctx context.Context, account *domain.Account, pin string) error

	// ChangePIN verifies the current PIN and replaces it, rejecting weak
	// new PINs.
	ChangePIN(ctx context.Context, phone, currentPIN, newPIN string) error

	// SeedAgent promotes an account to AGENT with a fresh PIN and starting
	// e-float, creating it first when unknown. Caller must be an admin.
	SeedAgent(ctx context.Context, rawPhone, pin string, floatAmount decimal.Decimal) error
}

// TokenIssuer produces an opaque bearer credential for a verified phone.
type TokenIssuer interface {
	Issue(phone string) (string, error)
}
