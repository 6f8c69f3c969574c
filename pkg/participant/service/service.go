// Package service implements the participant registration business logic.
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
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/participant"
	"github.com/exwaizedd/exam-pass/pkg/regstore"
)

// Store is the narrow data-access interface for the registration service.
// Defined here to keep the service decoupled from regstore implementation details.
type Store interface {
	CreateProfile(ctx context.Context, profile *participant.Profile) (*participant.Profile, error)
	GetProfile(ctx context.Context, role credential.Role, subject string) (*participant.Profile, error)
}

// Service defines the interface for the registration business logic
type Service interface {
	Register(ctx context.Context, req *participant.RegisterRequest) (*participant.RegisterResponse, error)
	GetProfile(ctx context.Context, role credential.Role) (*participant.ProfileResponse, error)
}

type registrationService struct {
	store   Store
	emitter events.Emitter
	logger  *zap.Logger
}

// NewService creates a new registration service
func NewService(store Store, emitter events.Emitter, logger *zap.Logger) Service {
	return &registrationService{
		store:   store,
		emitter: emitter,
		logger:  logger,
	}
}

// Register creates a profile for the authenticated caller.
//
// The registration process:
//  1. Rejects the administrator identity (admins manage the whitelist, they
//     do not hold profiles)
//  2. Recomputes the credential fingerprint from the supplied natural key
//  3. Atomically checks eligibility, binding uniqueness and
//     single-registration, and allocates the next role-scoped sequence number
//  4. Emits the registration audit event once the profile is committed
func (s *registrationService) Register(ctx context.Context, req *participant.RegisterRequest) (*participant.RegisterResponse, error) {
	caller := auth.CallerFromContext(ctx)
	if caller.Subject == "" {
		return nil, apperrors.UnAuthorizedError(nil, "authentication required")
	}
	if caller.Admin {
		metrics.RegistrationsTotal.WithLabelValues(req.Role, "rejected").Inc()
		return nil, apperrors.ForbiddenError(nil, "administrator cannot register")
	}

	role, err := credential.ParseRole(req.Role)
	if err != nil {
		return nil, apperrors.BadRequestError(err, "invalid role")
	}
	key := credential.NaturalKey{Name: req.Name, ID: req.NaturalID}
	if err := key.Validate(); err != nil {
		return nil, apperrors.BadRequestError(err, "invalid credential")
	}

	created, err := s.store.CreateProfile(ctx, participant.New(role, caller.Subject, key))
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(string(role), "rejected").Inc()
		switch {
		case errors.Is(err, regstore.ErrNotEligible):
			return nil, apperrors.ForbiddenError(err, "credential not eligible")
		case errors.Is(err, regstore.ErrFingerprintBound):
			return nil, apperrors.ConflictError(err, "credential already bound to another identity")
		case errors.Is(err, regstore.ErrProfileExists):
			return nil, apperrors.ConflictError(err, "already registered")
		default:
			return nil, apperrors.GeneralError(fmt.Errorf("register: %w", err))
		}
	}

	metrics.RegistrationsTotal.WithLabelValues(string(role), "success").Inc()

	kind := events.KindStudentRegistered
	if role == credential.RoleInvigilator {
		kind = events.KindInvigilatorRegistered
	}
	ev := events.New(kind)
	ev.Subject = created.Subject
	ev.Role = created.Role
	ev.Fingerprint = created.Fingerprint
	ev.Name = created.Name
	ev.NaturalID = created.NaturalID
	ev.SeqNo = created.SeqNo
	s.emitter.Emit(ctx, ev)

	return &participant.RegisterResponse{
		Role:        string(created.Role),
		Subject:     created.Subject,
		SeqNo:       created.SeqNo,
		Fingerprint: created.Fingerprint,
	}, nil
}

// GetProfile returns the authenticated caller's profile for a role.
func (s *registrationService) GetProfile(ctx context.Context, role credential.Role) (*participant.ProfileResponse, error) {
	caller := auth.CallerFromContext(ctx)
	if caller.Subject == "" {
		return nil, apperrors.UnAuthorizedError(nil, "authentication required")
	}

	profile, err := s.store.GetProfile(ctx, role, caller.Subject)
	if err != nil {
		if errors.Is(err, regstore.ErrProfileNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "not registered")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("get profile: %w", err))
	}
	return profile.ToResponse(), nil
}
