// Package phone provides phone number normalization utilities.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Normalize parses a raw phone number and returns its E.164 representation.
// The region is used when the number carries no country prefix. Returns an
// empty string when the input is blank, and the trimmed input when the
// number cannot be parsed as valid; submissions are never rejected over a
// malformed phone number.
func Normalize(raw, region string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}
