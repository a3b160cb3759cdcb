package dto

// OTPRequest asks for a one-time code to be delivered to a phone.
type OTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// OTPResponse acknowledges challenge issuance. The code itself is never
// returned to the caller.
type OTPResponse struct {
	Sent bool `json:"sent"`
}

// LoginRequest exchanges a verified OTP for a bearer token.
type LoginRequest struct {
	Phone string `json:"phone" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// TokenResponse carries the issued bearer credential.
type TokenResponse struct {
	Token string `json:"token"`
}
