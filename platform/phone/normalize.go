// Package phone normalizes contact phone numbers.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// fallbackRegion applies to numbers without a country prefix when no
// region is configured.
const fallbackRegion = "YE"

// NormalizeE164 formats input as E.164. Numbers that do not parse to a
// valid number are returned trimmed but otherwise unchanged.
func NormalizeE164(input, region string) string {
	number, ok := parse(input, region)
	if !ok {
		return strings.TrimSpace(input)
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsValid reports whether input parses to a valid number for region.
func IsValid(input, region string) bool {
	_, ok := parse(input, region)
	return ok
}

func parse(input, region string) (*phonenumbers.PhoneNumber, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, false
	}

	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = fallbackRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return nil, false
	}
	return number, true
}
