package sms

import (
	"errors"
	"strings"
)

// defaultCountryCode is prefixed onto bare national numbers.
const defaultCountryCode = "48"

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone reduces a stored phone number to the transport format:
// digits only, country-code-prefixed, leading "+".
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	// International prefix written as 00.
	digits = strings.TrimPrefix(digits, "00")

	switch {
	case len(digits) == 9:
		digits = defaultCountryCode + digits
	case len(digits) < 9 || len(digits) > 15:
		return "", ErrInvalidPhone
	}

	return "+" + digits, nil
}
