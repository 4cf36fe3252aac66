package util

import (
	"errors"
	"strings"
)

// Uzbek mobile numbers: country code 998 followed by a 9-digit national number.
const (
	countryCode       = "998"
	nationalNumberLen = 9
)

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone strips formatting from user-supplied phone input and returns
// the canonical E.164 form "+998XXXXXXXXX". A bare 9-digit national number is
// accepted with the country code implied. Anything else is rejected.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	s := digits.String()
	switch {
	case len(s) == nationalNumberLen:
		s = countryCode + s
	case len(s) == len(countryCode)+nationalNumberLen && strings.HasPrefix(s, countryCode):
		// already fully qualified
	default:
		return "", ErrInvalidPhone
	}

	return "+" + s, nil
}

// IsOTPCode reports whether s is exactly four ASCII digits.
func IsOTPCode(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
