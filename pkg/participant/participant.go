// Package participant holds the domain model for registered exam
// participants.
package participant

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/exwaizedd/exam-pass/pkg/credential"
)

// Profile represents the domain model for a registered participant.
//
// A profile binds a caller subject to a credential fingerprint under a role.
// SeqNo is the participant's role-scoped registration number, assigned
// sequentially from 1 and never reused. PassID is set once the participant's
// exam pass has been minted.
type Profile struct {
	Role          credential.Role
	Subject       string
	Name          string
	NaturalID     string
	Fingerprint   string
	SeqNo         int64
	Paid          bool
	FeeAmount     decimal.Decimal
	PassRequested bool
	PassID        *uint64
	CreatedAt     time.Time
}

// New creates a Profile from the given parameters.
func New(role credential.Role, subject string, key credential.NaturalKey) *Profile {
	return &Profile{
		Role:        role,
		Subject:     subject,
		Name:        key.Name,
		NaturalID:   key.ID,
		Fingerprint: credential.Fingerprint(key),
	}
}

// RegisterRequest represents a registration request.
// The caller supplies their role and natural credential details; the
// fingerprint is recomputed server-side and checked against the whitelist.
type RegisterRequest struct {
	Role      string `json:"role"`
	Name      string `json:"name"`
	NaturalID string `json:"natural_id"`
}

// RegisterResponse represents a registration response.
type RegisterResponse struct {
	Role        string `json:"role"`
	Subject     string `json:"subject"`
	SeqNo       int64  `json:"seq_no"`
	Fingerprint string `json:"fingerprint"`
}

// ProfileResponse represents a participant profile returned to callers.
type ProfileResponse struct {
	Role          string    `json:"role"`
	Subject       string    `json:"subject"`
	Name          string    `json:"name"`
	NaturalID     string    `json:"natural_id"`
	Fingerprint   string    `json:"fingerprint"`
	SeqNo         int64     `json:"seq_no"`
	Paid          bool      `json:"paid"`
	FeeAmount     string    `json:"fee_amount,omitzero"`
	PassRequested bool      `json:"pass_requested"`
	PassID        *uint64   `json:"pass_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToResponse converts a Profile to its API representation.
func (p *Profile) ToResponse() *ProfileResponse {
	resp := &ProfileResponse{
		Role:          string(p.Role),
		Subject:       p.Subject,
		Name:          p.Name,
		NaturalID:     p.NaturalID,
		Fingerprint:   p.Fingerprint,
		SeqNo:         p.SeqNo,
		Paid:          p.Paid,
		PassRequested: p.PassRequested,
		PassID:        p.PassID,
		CreatedAt:     p.CreatedAt,
	}
	if !p.FeeAmount.IsZero() {
		resp.FeeAmount = p.FeeAmount.String()
	}
	return resp
}
