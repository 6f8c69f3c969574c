// Package regstore persists the registry state: eligibility entries,
// participant profiles (which double as fingerprint bindings), role-scoped
// sequence counters, and the audit event log.
package regstore

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/participant"
	"github.com/exwaizedd/exam-pass/pkg/whitelist"
)

var (
	// ErrEligibilityExists is returned when a fingerprint is already whitelisted for a role.
	ErrEligibilityExists = errors.New("fingerprint already eligible")
	// ErrNotEligible is returned when a fingerprint is not whitelisted for a role.
	ErrNotEligible = errors.New("fingerprint not eligible")
	// ErrNotBound is returned when an operation requires a fingerprint binding that does not exist.
	ErrNotBound = errors.New("fingerprint not bound")
	// ErrProfileExists is returned when the caller already holds a profile for the role.
	ErrProfileExists = errors.New("profile already registered")
	// ErrFingerprintBound is returned when a fingerprint is already bound to another identity.
	ErrFingerprintBound = errors.New("fingerprint already bound")
	// ErrProfileNotFound is returned when a profile lookup finds no matching record.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrAlreadyPaid is returned when marking fees paid on an already-paid profile.
	ErrAlreadyPaid = errors.New("fees already paid")
	// ErrFeesUnpaid is returned when issuing a pass for an unpaid profile.
	ErrFeesUnpaid = errors.New("fees unpaid")
	// ErrPassIssued is returned when a profile has already been issued its pass.
	ErrPassIssued = errors.New("pass already issued")
)

// MintFunc mints a pass on the external ledger and returns its ID. The store
// invokes it while holding the profile's issuance lock so that no two mints
// can ever be in flight for the same identity.
type MintFunc func(ctx context.Context) (uint64, error)

// EligibleEntry is a whitelist entry together with its binding state.
type EligibleEntry struct {
	*whitelist.Entry
	Bound bool
}

// WhitelistStore defines eligibility set persistence.
type WhitelistStore interface {
	// AddEligibility whitelists a fingerprint for a role.
	// Returns ErrEligibilityExists if the fingerprint is already present.
	AddEligibility(ctx context.Context, entry *whitelist.Entry) error

	// RemoveEligibility withdraws a fingerprint and cascades: the bound
	// profile is deleted in the same transaction. Returns the removed
	// profile. Returns ErrNotBound if no binding exists for the fingerprint.
	RemoveEligibility(ctx context.Context, role credential.Role, fingerprint string) (*participant.Profile, error)

	// IsEligible reports whether a fingerprint is whitelisted for a role.
	IsEligible(ctx context.Context, role credential.Role, fingerprint string) (bool, error)

	// ListEligibility returns all whitelist entries for a role with their
	// binding state.
	ListEligibility(ctx context.Context, role credential.Role) ([]*EligibleEntry, error)
}

// ProfileStore defines participant profile persistence.
type ProfileStore interface {
	// CreateProfile registers a participant: it checks eligibility, binding
	// and single-registration invariants, allocates the next role-scoped
	// sequence number, and inserts the profile, all atomically. Concurrent
	// calls for the same fingerprint serialize on the eligibility row.
	// Returns ErrNotEligible, ErrFingerprintBound or ErrProfileExists.
	CreateProfile(ctx context.Context, profile *participant.Profile) (*participant.Profile, error)

	// RevokeProfile deletes the binding and profile for a fingerprint,
	// leaving the eligibility entry in place. Returns the removed profile.
	// Returns ErrNotBound if no binding exists.
	RevokeProfile(ctx context.Context, role credential.Role, fingerprint string) (*participant.Profile, error)

	// GetProfile returns the profile for a (role, subject) pair.
	// Returns ErrProfileNotFound if none exists.
	GetProfile(ctx context.Context, role credential.Role, subject string) (*participant.Profile, error)
}

// PassStore defines the student pass lifecycle persistence.
type PassStore interface {
	// MarkPaid flips the student's paid flag, recording the fee amount.
	// One-way transition. Returns ErrProfileNotFound or ErrAlreadyPaid.
	MarkPaid(ctx context.Context, subject string, fee decimal.Decimal) (*participant.Profile, error)

	// IssuePass mints a pass for the student and records its ID. The mint
	// call runs inside the issuance critical section: two concurrent calls
	// for the same subject result in exactly one mint.
	// Returns ErrProfileNotFound, ErrFeesUnpaid or ErrPassIssued.
	IssuePass(ctx context.Context, subject string, mint MintFunc) (*participant.Profile, error)
}

// EventStore defines audit event persistence.
type EventStore interface {
	events.Recorder

	// ListEvents returns the most recent events, newest first.
	ListEvents(ctx context.Context, limit int) ([]*events.Event, error)
}

// Store defines the interface for registry data persistence.
type Store interface {
	WhitelistStore
	ProfileStore
	PassStore
	EventStore
}
