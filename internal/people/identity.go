package people

import (
	"strings"
)

const localNumberDigits = 9

// Identity is the canonical phone number that identifies a person.
type Identity string

// String returns the identity as a plain string.
func (id Identity) String() string {
	return string(id)
}

// IsZero reports whether the identity is empty and therefore unusable.
func (id Identity) IsZero() bool {
	return id == ""
}

// NormalizeIdentity canonicalizes a raw phone number.
// The result holds digits only; nine-digit numbers regain the leading zero lost to numeric
// coercion upstream. Input without digits yields the empty identity.
func NormalizeIdentity(raw string) Identity {
	value := trimNumericArtifact(strings.TrimSpace(raw))

	var digits strings.Builder
	digits.Grow(len(value) + 1)
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	normalized := digits.String()
	if len(normalized) == localNumberDigits {
		normalized = "0" + normalized
	}
	return Identity(normalized)
}

// trimNumericArtifact removes the ".0" tail spreadsheets append to numbers stored as floats.
func trimNumericArtifact(value string) string {
	dot := strings.LastIndexByte(value, '.')
	if dot <= 0 || dot == len(value)-1 {
		return value
	}
	if strings.Trim(value[dot+1:], "0") != "" {
		return value
	}
	return value[:dot]
}

// normalizeName collapses whitespace so display names compare case- and spacing-insensitively.
func normalizeName(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

// cleanName trims and collapses whitespace in a display name without changing case.
func cleanName(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
