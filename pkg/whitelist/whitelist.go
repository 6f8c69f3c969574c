// Package whitelist holds the domain model for credential eligibility.
//
// An eligibility entry admits exactly one identity: the holder whose
// credential fingerprint matches the entry may register once for the entry's
// role. Entries are managed by the registry admin.
package whitelist

import (
	"time"

	"github.com/exwaizedd/exam-pass/pkg/credential"
)

// Entry represents an eligible credential fingerprint for a role.
type Entry struct {
	Role        credential.Role
	Fingerprint string
	Note        string
	CreatedAt   time.Time
}

// New creates an Entry from the given parameters.
func New(role credential.Role, fingerprint, note string) *Entry {
	return &Entry{
		Role:        role,
		Fingerprint: fingerprint,
		Note:        note,
	}
}

// AddRequest represents an admin request to whitelist a credential.
// The credential is identified either by its precomputed fingerprint or by
// the natural key it is derived from.
type AddRequest struct {
	Role        string `json:"role"`
	Fingerprint string `json:"fingerprint,omitzero"`
	Name        string `json:"name,omitzero"`
	NaturalID   string `json:"natural_id,omitzero"`
	Note        string `json:"note,omitzero"`
}

// RemoveRequest represents an admin request targeting a whitelisted
// credential, identified either by fingerprint or by natural key.
type RemoveRequest struct {
	Role        string `json:"role"`
	Fingerprint string `json:"fingerprint,omitzero"`
	Name        string `json:"name,omitzero"`
	NaturalID   string `json:"natural_id,omitzero"`
}

// EntryResponse represents an eligibility entry returned to the admin.
type EntryResponse struct {
	Role        string    `json:"role"`
	Fingerprint string    `json:"fingerprint"`
	Note        string    `json:"note,omitzero"`
	Bound       bool      `json:"bound"`
	CreatedAt   time.Time `json:"created_at"`
}
