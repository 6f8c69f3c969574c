// Package service implements the admin control plane: whitelist management,
// revocation, payment marking and the audit trail.
//
// Admin mutations cascade across several tables, so the whole control plane
// runs under a single-writer discipline: one outstanding admin mutation at a
// time. Participant-facing operations are not serialized by this mutex; they
// rely on the store's per-fingerprint and per-subject locking.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/exwaizedd/exam-pass/internal/metrics"
	apperrors "github.com/exwaizedd/exam-pass/pkg/app/errors"
	"github.com/exwaizedd/exam-pass/pkg/auth"
	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/participant"
	"github.com/exwaizedd/exam-pass/pkg/pass"
	passservice "github.com/exwaizedd/exam-pass/pkg/pass/service"
	"github.com/exwaizedd/exam-pass/pkg/regstore"
	"github.com/exwaizedd/exam-pass/pkg/whitelist"
)

// Store is the narrow data-access interface for the admin control plane.
type Store interface {
	AddEligibility(ctx context.Context, entry *whitelist.Entry) error
	RemoveEligibility(ctx context.Context, role credential.Role, fingerprint string) (*participant.Profile, error)
	ListEligibility(ctx context.Context, role credential.Role) ([]*regstore.EligibleEntry, error)
	RevokeProfile(ctx context.Context, role credential.Role, fingerprint string) (*participant.Profile, error)
	ListEvents(ctx context.Context, limit int) ([]*events.Event, error)
}

// Service defines the interface for the admin control plane
type Service interface {
	AddEligible(ctx context.Context, req *whitelist.AddRequest) (*whitelist.EntryResponse, error)
	RemoveEligible(ctx context.Context, req *whitelist.RemoveRequest) error
	ListEligible(ctx context.Context, role credential.Role) ([]*whitelist.EntryResponse, error)
	Revoke(ctx context.Context, req *whitelist.RemoveRequest) error
	MarkPaid(ctx context.Context, req *pass.MarkPaidRequest) (*pass.PaidResponse, error)
	QueryPaid(ctx context.Context, subject string) (*pass.PaidResponse, error)
	ListEvents(ctx context.Context, limit int) ([]*events.Response, error)
}

type adminService struct {
	store   Store
	passes  passservice.Service
	emitter events.Emitter
	logger  *zap.Logger

	// serializes all admin mutations
	mu sync.Mutex
}

// NewService creates a new admin control plane service
func NewService(store Store, passes passservice.Service, emitter events.Emitter, logger *zap.Logger) Service {
	return &adminService{
		store:   store,
		passes:  passes,
		emitter: emitter,
		logger:  logger,
	}
}

// requireAdmin rejects non-admin callers before any state is read.
func requireAdmin(ctx context.Context) error {
	caller := auth.CallerFromContext(ctx)
	if caller.Subject == "" {
		return apperrors.UnAuthorizedError(nil, "authentication required")
	}
	if !caller.Admin {
		return apperrors.ForbiddenError(nil, "admin access required")
	}
	return nil
}

// resolveTarget resolves the (role, fingerprint) pair a request targets.
func resolveTarget(role string, fingerprint, name, naturalID string) (credential.Role, string, error) {
	r, err := credential.ParseRole(role)
	if err != nil {
		return "", "", apperrors.BadRequestError(err, "invalid role")
	}

	if fingerprint != "" {
		if !credential.ValidFingerprint(fingerprint) {
			return "", "", apperrors.BadRequestError(nil, "invalid fingerprint")
		}
		return r, fingerprint, nil
	}

	key := credential.NaturalKey{Name: name, ID: naturalID}
	if err := key.Validate(); err != nil {
		return "", "", apperrors.BadRequestError(err, "fingerprint or credential required")
	}
	return r, credential.Fingerprint(key), nil
}

// AddEligible whitelists a credential for a role.
func (s *adminService) AddEligible(ctx context.Context, req *whitelist.AddRequest) (*whitelist.EntryResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	role, fp, err := resolveTarget(req.Role, req.Fingerprint, req.Name, req.NaturalID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := whitelist.New(role, fp, req.Note)
	if err := s.store.AddEligibility(ctx, entry); err != nil {
		if errors.Is(err, regstore.ErrEligibilityExists) {
			return nil, apperrors.ConflictError(err, "already eligible")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("add eligible: %w", err))
	}

	metrics.AdminMutationsTotal.WithLabelValues("add_eligible").Inc()

	ev := events.New(events.KindEligibilityAdded)
	ev.Role = role
	ev.Fingerprint = fp
	s.emitter.Emit(ctx, ev)

	return &whitelist.EntryResponse{
		Role:        string(role),
		Fingerprint: fp,
		Note:        req.Note,
	}, nil
}

// RemoveEligible withdraws a credential and deletes the dependent profile
// and binding as a single logical operation. Fails if the fingerprint has
// never been consumed by a registration.
func (s *adminService) RemoveEligible(ctx context.Context, req *whitelist.RemoveRequest) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	role, fp, err := resolveTarget(req.Role, req.Fingerprint, req.Name, req.NaturalID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.store.RemoveEligibility(ctx, role, fp)
	if err != nil {
		if errors.Is(err, regstore.ErrNotBound) {
			return apperrors.ResourceNotFoundError(err, "fingerprint not bound")
		}
		return apperrors.GeneralError(fmt.Errorf("remove eligible: %w", err))
	}

	metrics.AdminMutationsTotal.WithLabelValues("remove_eligible").Inc()

	ev := events.New(events.KindEligibilityRemoved)
	ev.Role = role
	ev.Fingerprint = fp
	ev.Subject = removed.Subject
	ev.Name = removed.Name
	ev.NaturalID = removed.NaturalID
	ev.SeqNo = removed.SeqNo
	s.emitter.Emit(ctx, ev)

	return nil
}

// ListEligible returns the whitelist for a role.
func (s *adminService) ListEligible(ctx context.Context, role credential.Role) ([]*whitelist.EntryResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	entries, err := s.store.ListEligibility(ctx, role)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("list eligible: %w", err))
	}

	out := make([]*whitelist.EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = &whitelist.EntryResponse{
			Role:        string(e.Role),
			Fingerprint: e.Fingerprint,
			Note:        e.Note,
			Bound:       e.Bound,
			CreatedAt:   e.CreatedAt,
		}
	}
	return out, nil
}

// Revoke deletes a participant's profile and binding, leaving the
// eligibility entry in place so the credential can be claimed again.
func (s *adminService) Revoke(ctx context.Context, req *whitelist.RemoveRequest) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	role, fp, err := resolveTarget(req.Role, req.Fingerprint, req.Name, req.NaturalID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.store.RevokeProfile(ctx, role, fp)
	if err != nil {
		if errors.Is(err, regstore.ErrNotBound) {
			return apperrors.ResourceNotFoundError(err, "fingerprint not bound")
		}
		return apperrors.GeneralError(fmt.Errorf("revoke: %w", err))
	}

	metrics.AdminMutationsTotal.WithLabelValues("revoke").Inc()
	metrics.RevocationsTotal.WithLabelValues(string(role)).Inc()

	ev := events.New(events.KindProfileRevoked)
	ev.Role = role
	ev.Fingerprint = fp
	ev.Subject = removed.Subject
	ev.Name = removed.Name
	ev.NaturalID = removed.NaturalID
	ev.SeqNo = removed.SeqNo
	s.emitter.Emit(ctx, ev)

	return nil
}

// MarkPaid records a student's fee payment.
func (s *adminService) MarkPaid(ctx context.Context, req *pass.MarkPaidRequest) (*pass.PaidResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.passes.MarkPaid(ctx, req)
	if err != nil {
		return nil, err
	}
	metrics.AdminMutationsTotal.WithLabelValues("mark_paid").Inc()
	return resp, nil
}

// QueryPaid reports a student's payment state.
func (s *adminService) QueryPaid(ctx context.Context, subject string) (*pass.PaidResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.passes.QueryPaid(ctx, subject)
}

// ListEvents returns the most recent audit events, newest first.
func (s *adminService) ListEvents(ctx context.Context, limit int) ([]*events.Response, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	evs, err := s.store.ListEvents(ctx, limit)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("list events: %w", err))
	}

	out := make([]*events.Response, len(evs))
	for i, ev := range evs {
		out[i] = ev.ToResponse()
	}
	return out, nil
}
