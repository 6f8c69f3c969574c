// Package service implements the pass verification business logic.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/exwaizedd/exam-pass/internal/metrics"
	apperrors "github.com/exwaizedd/exam-pass/pkg/app/errors"
	"github.com/exwaizedd/exam-pass/pkg/auth"
	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/ledger"
	"github.com/exwaizedd/exam-pass/pkg/participant"
	"github.com/exwaizedd/exam-pass/pkg/regstore"
	"github.com/exwaizedd/exam-pass/pkg/verify"
)

// Store is the narrow data-access interface for the verification service.
type Store interface {
	GetProfile(ctx context.Context, role credential.Role, subject string) (*participant.Profile, error)
}

// Service defines the interface for the verification business logic
type Service interface {
	// Verify resolves a pass to its current owner and returns the owner's
	// profile data. Invigilator-only. Read-only, safe to call repeatedly
	// and concurrently.
	Verify(ctx context.Context, passID uint64) (*verify.Result, error)
}

type verifyService struct {
	store  Store
	ledger ledger.Ledger
	logger *zap.Logger
}

// NewService creates a new verification service
func NewService(store Store, l ledger.Ledger, logger *zap.Logger) Service {
	return &verifyService{
		store:  store,
		ledger: l,
		logger: logger,
	}
}

// Verify checks a pass. A pass is valid only if it was actually minted and
// its current ledger owner is a registered, paid student — a pass that ended
// up owned by an unregistered or unpaid account fails verification.
func (s *verifyService) Verify(ctx context.Context, passID uint64) (*verify.Result, error) {
	caller := auth.CallerFromContext(ctx)
	if caller.Subject == "" {
		return nil, apperrors.UnAuthorizedError(nil, "authentication required")
	}

	// Authorization before any pass state is read
	if _, err := s.store.GetProfile(ctx, credential.RoleInvigilator, caller.Subject); err != nil {
		if errors.Is(err, regstore.ErrProfileNotFound) {
			return nil, apperrors.ForbiddenError(err, "invigilator access required")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("verify: %w", err))
	}

	total, err := s.ledger.TotalMinted(ctx)
	if err != nil {
		return nil, apperrors.DependencyError(err, "ledger unavailable")
	}
	if passID >= total {
		metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.ResourceNotFoundError(nil, "invalid pass")
	}

	owner, err := s.ledger.OwnerOf(ctx, passID)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownPass) {
			metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
			return nil, apperrors.ResourceNotFoundError(err, "invalid pass")
		}
		return nil, apperrors.DependencyError(err, "ledger unavailable")
	}

	profile, err := s.store.GetProfile(ctx, credential.RoleStudent, owner)
	if err != nil {
		if errors.Is(err, regstore.ErrProfileNotFound) {
			metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
			return nil, apperrors.ResourceNotFoundError(err, "invalid pass")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("verify: %w", err))
	}
	if !profile.Paid {
		metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.ResourceNotFoundError(nil, "invalid pass")
	}

	metrics.VerificationsTotal.WithLabelValues("valid").Inc()

	return &verify.Result{
		PassID:     passID,
		Subject:    profile.Subject,
		Name:       profile.Name,
		NaturalID:  profile.NaturalID,
		Registered: true,
		Paid:       profile.Paid,
		SeqNo:      profile.SeqNo,
	}, nil
}
