package services

import "context"

// OTPSvcFacade manages one-time-code challenges, at most one live per phone.
type OTPSvcFacade interface {
	// Issue generates a fresh code, replaces any existing challenge for the
	// phone, and hands the code to the delivery capability.
	Issue(ctx context.Context, phone string) error

	// Verify checks a candidate code. Failures are typed: apperrors.ErrNotFound
	// (no challenge), apperrors.ErrLocked (blocked after too many guesses) and
	// apperrors.ErrAuth (expired or wrong code). A successful verification
	// consumes the challenge.
	Verify(ctx context.Context, phone, candidate string) error
}

// CodeSender delivers a one-time code out of band. Fire-and-forget: failures
// are logged by implementations and never block challenge issuance.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) error
}
