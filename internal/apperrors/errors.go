package apperrors

import "errors"

// Expected business outcomes. These are normal control flow of the protocol:
// handlers map them to structured failure responses, and none of them implies
// a partial mutation.
var (
	// ErrValidation indicates malformed input (bad phone, non-positive amount).
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates that a requested resource could not be found.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicate indicates an attempt to create a resource that already exists.
	ErrDuplicate = errors.New("resource already exists")

	// ErrAuth indicates a failed credential check (wrong PIN or OTP).
	ErrAuth = errors.New("authentication failed")

	// ErrLocked indicates the account is under PIN lockout or the OTP
	// challenge is temporarily blocked.
	ErrLocked = errors.New("temporarily locked")

	// ErrInactiveAccount indicates a deactivated account was addressed.
	ErrInactiveAccount = errors.New("account is inactive")

	// ErrSelfTransfer indicates sender and receiver resolve to the same account.
	ErrSelfTransfer = errors.New("cannot transfer to self")

	// ErrInsufficientFunds indicates the spendable balance cannot cover the
	// amount (plus fee, where one applies).
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientFloat indicates the agent's e-float cannot fund the deposit.
	ErrInsufficientFloat = errors.New("insufficient e-float")

	// ErrAmountOutOfRange indicates the fee policy rejected the amount.
	ErrAmountOutOfRange = errors.New("amount outside permitted range")

	// ErrLimitExceeded indicates the amount exceeds the sender's KYC tier cap.
	ErrLimitExceeded = errors.New("per-transaction limit exceeded")

	// ErrForbidden indicates the account's role does not permit the operation.
	ErrForbidden = errors.New("operation not permitted")
)

// ErrInternal indicates a storage or infrastructure failure. The whole
// operation was rolled back; the caller may safely retry with the same
// idempotency ref.
var ErrInternal = errors.New("internal error")
