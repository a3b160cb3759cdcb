package utils

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/mzwallet/mz_wallet_backend/internal/apperrors"
)

// defaultMobilePrefixes are the domestic mobile prefixes assumed for bare
// 9-digit numbers when the default region is Mozambique.
var defaultMobilePrefixes = []string{"82", "83", "84", "85", "86", "87"}

// PhoneNormalizer canonicalizes raw phone input into E.164 form. All other
// components accept only canonical phone strings; account lookup and
// self-transfer detection compare canonical forms.
type PhoneNormalizer struct {
	region      string
	countryCode string
	prefixes    []string
}

// NewPhoneNormalizer builds a normalizer for the given default region
// (ISO 3166-1 alpha-2, e.g. "MZ").
func NewPhoneNormalizer(defaultRegion string) *PhoneNormalizer {
	if defaultRegion == "" {
		defaultRegion = "MZ"
	}
	cc := phonenumbers.GetCountryCodeForRegion(defaultRegion)
	prefixes := []string{}
	if defaultRegion == "MZ" {
		prefixes = defaultMobilePrefixes
	}
	return &PhoneNormalizer{
		region:      defaultRegion,
		countryCode: fmt.Sprintf("%d", cc),
		prefixes:    prefixes,
	}
}

// Normalize parses raw input with country-aware rules, falling back to
// stripping non-digits and applying local prefix heuristics. Returns
// apperrors.ErrValidation when no candidate parses.
func (n *PhoneNormalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	if num, err := phonenumbers.Parse(raw, n.region); err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.Format(num, phonenumbers.E164), nil
	}

	digits := stripNonDigits(raw)
	if digits == "" {
		return "", fmt.Errorf("%w: invalid phone number", apperrors.ErrValidation)
	}

	var candidate string
	switch {
	case strings.HasPrefix(digits, n.countryCode):
		candidate = "+" + digits
	case len(digits) == 9 && n.hasMobilePrefix(digits):
		candidate = "+" + n.countryCode + digits
	default:
		candidate = "+" + digits
	}

	if num, err := phonenumbers.Parse(candidate, n.region); err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.Format(num, phonenumbers.E164), nil
	}

	return "", fmt.Errorf("%w: phone %q is not a valid or supported number", apperrors.ErrValidation, raw)
}

func (n *PhoneNormalizer) hasMobilePrefix(digits string) bool {
	for _, p := range n.prefixes {
		if strings.HasPrefix(digits, p) {
			return true
		}
	}
	return false
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
