// Package service implements the pass issuance business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/exwaizedd/exam-pass/internal/metrics"
	apperrors "github.com/exwaizedd/exam-pass/pkg/app/errors"
	"github.com/exwaizedd/exam-pass/pkg/auth"
	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/ledger"
	"github.com/exwaizedd/exam-pass/pkg/participant"
	"github.com/exwaizedd/exam-pass/pkg/pass"
	"github.com/exwaizedd/exam-pass/pkg/regstore"
)

// Store is the narrow data-access interface for the pass service.
type Store interface {
	IssuePass(ctx context.Context, subject string, mint regstore.MintFunc) (*participant.Profile, error)
	MarkPaid(ctx context.Context, subject string, fee decimal.Decimal) (*participant.Profile, error)
	GetProfile(ctx context.Context, role credential.Role, subject string) (*participant.Profile, error)
}

// Service defines the interface for the pass issuance business logic
type Service interface {
	// RequestPass mints a pass for the authenticated student. Exactly-once:
	// a second call fails, regardless of ordering or concurrency.
	RequestPass(ctx context.Context) (*pass.IssueResponse, error)

	// MarkPaid records a student's fee payment. One-way transition.
	MarkPaid(ctx context.Context, req *pass.MarkPaidRequest) (*pass.PaidResponse, error)

	// QueryPaid reports a student's payment state, cross-checking that the
	// stored fingerprint still matches the stored natural key.
	QueryPaid(ctx context.Context, subject string) (*pass.PaidResponse, error)
}

type passService struct {
	store   Store
	ledger  ledger.Ledger
	emitter events.Emitter
	logger  *zap.Logger
}

// NewService creates a new pass service
func NewService(store Store, l ledger.Ledger, emitter events.Emitter, logger *zap.Logger) Service {
	return &passService{
		store:   store,
		ledger:  l,
		emitter: emitter,
		logger:  logger,
	}
}

// RequestPass mints a pass for the caller's student profile. The mint call
// runs inside the store's issuance critical section, so two racing requests
// can never both reach the ledger.
func (s *passService) RequestPass(ctx context.Context) (*pass.IssueResponse, error) {
	caller := auth.CallerFromContext(ctx)
	if caller.Subject == "" {
		return nil, apperrors.UnAuthorizedError(nil, "authentication required")
	}

	issued, err := s.store.IssuePass(ctx, caller.Subject, func(ctx context.Context) (uint64, error) {
		start := time.Now()
		passID, err := s.ledger.Mint(ctx, caller.Subject)
		metrics.LedgerMintDuration.Observe(time.Since(start).Seconds())
		return passID, err
	})
	if err != nil {
		switch {
		case errors.Is(err, regstore.ErrProfileNotFound):
			return nil, apperrors.ResourceNotFoundError(err, "not registered")
		case errors.Is(err, regstore.ErrFeesUnpaid):
			return nil, apperrors.ConflictError(err, "fees unpaid")
		case errors.Is(err, regstore.ErrPassIssued):
			return nil, apperrors.ConflictError(err, "pass already issued")
		default:
			return nil, apperrors.DependencyError(err, "pass issuance failed")
		}
	}

	metrics.PassesIssuedTotal.Inc()

	ev := events.New(events.KindPassRequested)
	ev.Subject = issued.Subject
	ev.Role = issued.Role
	ev.PassID = issued.PassID
	s.emitter.Emit(ctx, ev)

	return &pass.IssueResponse{
		Subject: issued.Subject,
		SeqNo:   issued.SeqNo,
		PassID:  *issued.PassID,
	}, nil
}

// MarkPaid flips the student's paid flag.
func (s *passService) MarkPaid(ctx context.Context, req *pass.MarkPaidRequest) (*pass.PaidResponse, error) {
	if req.Subject == "" {
		return nil, apperrors.BadRequestError(nil, "subject required")
	}
	fee := decimal.Zero
	if req.FeeAmount != "" {
		var err error
		fee, err = decimal.NewFromString(req.FeeAmount)
		if err != nil {
			return nil, apperrors.BadRequestError(err, "invalid fee amount")
		}
		if fee.IsNegative() {
			return nil, apperrors.BadRequestError(nil, "fee amount cannot be negative")
		}
	}

	paid, err := s.store.MarkPaid(ctx, req.Subject, fee)
	if err != nil {
		switch {
		case errors.Is(err, regstore.ErrProfileNotFound):
			return nil, apperrors.ResourceNotFoundError(err, "not registered")
		case errors.Is(err, regstore.ErrAlreadyPaid):
			return nil, apperrors.ConflictError(err, "already paid")
		default:
			return nil, apperrors.GeneralError(fmt.Errorf("mark paid: %w", err))
		}
	}

	ev := events.New(events.KindStudentMarkedPaid)
	ev.Subject = paid.Subject
	ev.Role = paid.Role
	s.emitter.Emit(ctx, ev)

	return paidResponse(paid), nil
}

// QueryPaid reports a student's payment state. It recomputes the fingerprint
// from the stored natural key and fails if it no longer matches the stored
// binding, surfacing any historical rebinding inconsistency instead of
// reporting payment state for the wrong credential.
func (s *passService) QueryPaid(ctx context.Context, subject string) (*pass.PaidResponse, error) {
	if subject == "" {
		return nil, apperrors.BadRequestError(nil, "subject required")
	}

	profile, err := s.store.GetProfile(ctx, credential.RoleStudent, subject)
	if err != nil {
		if errors.Is(err, regstore.ErrProfileNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "not registered")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("query paid: %w", err))
	}

	recomputed := credential.Fingerprint(credential.NaturalKey{Name: profile.Name, ID: profile.NaturalID})
	if recomputed != profile.Fingerprint {
		return nil, apperrors.GeneralError(fmt.Errorf("binding inconsistency for %s: stored fingerprint does not match stored credential", subject))
	}

	return paidResponse(profile), nil
}

func paidResponse(p *participant.Profile) *pass.PaidResponse {
	resp := &pass.PaidResponse{
		Subject: p.Subject,
		Paid:    p.Paid,
	}
	if !p.FeeAmount.IsZero() {
		resp.FeeAmount = p.FeeAmount.String()
	}
	return resp
}
