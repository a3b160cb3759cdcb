package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role determines which operations an account may perform.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAgent    Role = "AGENT"
	RoleAdmin    Role = "ADMIN"
)

// Account is a phone-identified balance holder. The canonical phone number is
// the unique business key; AccountID is the storage key.
type Account struct {
	AccountID      string          `json:"accountID"`
	Phone          string          `json:"phone"` // canonical E.164 form, unique
	Role           Role            `json:"role"`
	Balance        decimal.Decimal `json:"balance"`      // customer-facing funds, never negative
	FloatBalance   decimal.Decimal `json:"floatBalance"` // agent e-float, never negative
	CredentialHash string          `json:"-"`            // bcrypt PIN hash; empty before first credential set
	FailCount      int             `json:"-"`
	LockedUntil    *time.Time      `json:"-"`
	Active         bool            `json:"active"`
	KYCLevel       int             `json:"kycLevel"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// IsLocked reports whether the account is currently under PIN lockout.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
