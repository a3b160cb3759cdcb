package domain

import "time"

// OTPChallenge is a short-lived one-time code bound to a phone number.
// At most one live challenge exists per phone; issuing a new one replaces it.
type OTPChallenge struct {
	Phone        string     `json:"phone"`
	Code         string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `json:"maxAttempts"`
	BlockedUntil *time.Time `json:"blockedUntil,omitempty"`
	Consumed     bool       `json:"consumed"`
}

// IsBlocked reports whether verification attempts are currently refused.
func (o *OTPChallenge) IsBlocked(now time.Time) bool {
	return o.BlockedUntil != nil && now.Before(*o.BlockedUntil)
}

// IsExpired reports whether the code's validity window has passed.
func (o *OTPChallenge) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
