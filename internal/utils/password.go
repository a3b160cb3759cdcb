package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPIN hashes a plaintext PIN using bcrypt.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPINHash compares a plaintext PIN with a bcrypt hash. It returns false
// on malformed hash input instead of propagating an error.
func CheckPINHash(pin, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

// weakPINs are trivially guessable 4-digit PINs rejected on credential change.
var weakPINs = map[string]struct{}{
	"0000": {}, "1111": {}, "2222": {}, "3333": {}, "4444": {},
	"5555": {}, "6666": {}, "7777": {}, "8888": {}, "9999": {},
	"1234": {}, "4321": {}, "0123": {}, "3210": {},
}

// IsWeakPIN reports whether a candidate PIN is malformed or trivially
// guessable (repeated digits, obvious sequences).
func IsWeakPIN(pin string) bool {
	if len(pin) != 4 {
		return true
	}
	for _, ch := range pin {
		if ch < '0' || ch > '9' {
			return true
		}
	}
	if _, found := weakPINs[pin]; found {
		return true
	}
	const ascending = "0123456789"
	const descending = "9876543210"
	if containsRun(ascending, pin) || containsRun(descending, pin) {
		return true
	}
	return false
}

func containsRun(seq, pin string) bool {
	for i := 0; i+len(pin) <= len(seq); i++ {
		if seq[i:i+len(pin)] == pin {
			return true
		}
	}
	return false
}
