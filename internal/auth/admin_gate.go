package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

// AdminHeader carries the admin PIN on admin requests.
const AdminHeader = "X-Admin-PIN"

var (
	ErrMissingAdminPIN = errors.New("admin gate: pin required")
	ErrInvalidAdminPIN = errors.New("admin gate: invalid pin")
)

// AdminGate checks the shared admin PIN. Comparison is exact: no trimming or case folding.
type AdminGate struct {
	pin []byte
}

// NewAdminGate constructs a gate for the configured PIN.
func NewAdminGate(pin string) (*AdminGate, error) {
	if strings.TrimSpace(pin) == "" {
		return nil, ErrMissingAdminPIN
	}
	return &AdminGate{pin: []byte(pin)}, nil
}

// Check reports whether the candidate matches the configured PIN.
func (g *AdminGate) Check(candidate string) error {
	if candidate == "" {
		return ErrMissingAdminPIN
	}
	if subtle.ConstantTimeCompare([]byte(candidate), g.pin) != 1 {
		return ErrInvalidAdminPIN
	}
	return nil
}
