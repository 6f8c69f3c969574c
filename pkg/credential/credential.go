// Package credential defines participant roles, natural keys and the
// fingerprint derivation used as the whitelist and binding key.
package credential

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Role identifies the registration track a participant belongs to.
type Role string

const (
	RoleStudent     Role = "student"
	RoleInvigilator Role = "invigilator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleInvigilator
}

// ParseRole converts a wire-level role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// NaturalKey is the role's natural identification tuple: the participant's
// name plus the matriculation number (students) or staff id (invigilators).
type NaturalKey struct {
	Name string `json:"name"`
	ID   string `json:"natural_id"`
}

// Validate checks that both fields are present.
func (k NaturalKey) Validate() error {
	if strings.TrimSpace(k.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(k.ID) == "" {
		return fmt.Errorf("natural_id is required")
	}
	return nil
}

// Fingerprint derives the credential fingerprint for a natural key.
// The digest is keccak256 over the packed tuple in fixed order (name, then
// id), so the same logical identity always maps to the same fingerprint.
// Two participants sharing identical natural-key fields collide on purpose:
// the fingerprint is a uniqueness key relative to the whitelist, not a secret.
func Fingerprint(k NaturalKey) string {
	return crypto.Keccak256Hash([]byte(k.Name), []byte(k.ID)).Hex()
}

// ValidFingerprint reports whether s looks like a 0x-prefixed keccak digest.
func ValidFingerprint(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s) != 66 {
		return false
	}
	for _, c := range s[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
