package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	apperrors "github.com/exwaizedd/exam-pass/pkg/app/errors"
	"github.com/exwaizedd/exam-pass/pkg/auth"
	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/participant"
	"github.com/exwaizedd/exam-pass/pkg/regstore"
	"github.com/exwaizedd/exam-pass/pkg/whitelist"
)

func callerCtx(subject string) context.Context {
	return auth.WithCaller(context.Background(), &auth.Caller{Subject: subject})
}

func adminCtx(subject string) context.Context {
	return auth.WithCaller(context.Background(), &auth.Caller{Subject: subject, Admin: true})
}

func setupService(t *testing.T) (Service, regstore.Store) {
	t.Helper()
	store := regstore.NewMemoryStore()
	svc := NewService(store, events.NewLogEmitter(zap.NewNop()), zap.NewNop())
	return svc, store
}

func whitelistKey(t *testing.T, store regstore.Store, role credential.Role, name, naturalID string) string {
	t.Helper()
	fp := credential.Fingerprint(credential.NaturalKey{Name: name, ID: naturalID})
	if err := store.AddEligibility(context.Background(), whitelist.New(role, fp, "")); err != nil {
		t.Fatalf("AddEligibility() failed: %v", err)
	}
	return fp
}

func TestRegistrationService_Register_Student(t *testing.T) {
	svc, store := setupService(t)
	fp := whitelistKey(t, store, credential.RoleStudent, "Ada", "M001")

	resp, err := svc.Register(callerCtx("ada"), &participant.RegisterRequest{
		Role: "student", Name: "Ada", NaturalID: "M001",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if resp.SeqNo != 1 {
		t.Fatalf("first registration should get seq no 1, got %d", resp.SeqNo)
	}
	if resp.Fingerprint != fp {
		t.Fatalf("fingerprint mismatch: got %s, want %s", resp.Fingerprint, fp)
	}
	if resp.Subject != "ada" || resp.Role != "student" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRegistrationService_Register_SequencePerRole(t *testing.T) {
	svc, store := setupService(t)
	whitelistKey(t, store, credential.RoleStudent, "Ada", "M001")
	whitelistKey(t, store, credential.RoleStudent, "Cleo", "M002")
	whitelistKey(t, store, credential.RoleInvigilator, "Bo", "S001")

	first, err := svc.Register(callerCtx("ada"), &participant.RegisterRequest{Role: "student", Name: "Ada", NaturalID: "M001"})
	if err != nil {
		t.Fatalf("Register(ada) failed: %v", err)
	}
	second, err := svc.Register(callerCtx("cleo"), &participant.RegisterRequest{Role: "student", Name: "Cleo", NaturalID: "M002"})
	if err != nil {
		t.Fatalf("Register(cleo) failed: %v", err)
	}
	inv, err := svc.Register(callerCtx("bo"), &participant.RegisterRequest{Role: "invigilator", Name: "Bo", NaturalID: "S001"})
	if err != nil {
		t.Fatalf("Register(bo) failed: %v", err)
	}

	if first.SeqNo != 1 || second.SeqNo != 2 {
		t.Fatalf("student sequence wrong: %d, %d", first.SeqNo, second.SeqNo)
	}
	if inv.SeqNo != 1 {
		t.Fatalf("invigilator sequence starts fresh at 1, got %d", inv.SeqNo)
	}
}

func TestRegistrationService_Register_AdminRejected(t *testing.T) {
	svc, store := setupService(t)
	whitelistKey(t, store, credential.RoleStudent, "Ada", "M001")

	_, err := svc.Register(adminCtx("registry-admin"), &participant.RegisterRequest{
		Role: "student", Name: "Ada", NaturalID: "M001",
	})
	if !apperrors.Is(err, apperrors.CategoryForbidden) {
		t.Fatalf("expected CategoryForbidden, got %v", err)
	}
}

func TestRegistrationService_Register_NotEligible(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Register(callerCtx("ada"), &participant.RegisterRequest{
		Role: "student", Name: "Ada", NaturalID: "M001",
	})
	if !apperrors.Is(err, apperrors.CategoryForbidden) {
		t.Fatalf("expected CategoryForbidden, got %v", err)
	}
}

func TestRegistrationService_Register_FingerprintAlreadyBound(t *testing.T) {
	svc, store := setupService(t)
	whitelistKey(t, store, credential.RoleStudent, "Ada", "M001")

	if _, err := svc.Register(callerCtx("ada"), &participant.RegisterRequest{Role: "student", Name: "Ada", NaturalID: "M001"}); err != nil {
		t.Fatalf("Register(ada) failed: %v", err)
	}

	// A different identity presenting the same credential is rejected.
	_, err := svc.Register(callerCtx("impostor"), &participant.RegisterRequest{Role: "student", Name: "Ada", NaturalID: "M001"})
	if !apperrors.Is(err, apperrors.CategoryDataConflict) {
		t.Fatalf("expected CategoryDataConflict, got %v", err)
	}
}

func TestRegistrationService_Register_AlreadyRegistered(t *testing.T) {
	svc, store := setupService(t)
	whitelistKey(t, store, credential.RoleStudent, "Ada", "M001")
	whitelistKey(t, store, credential.RoleStudent, "Cleo", "M002")

	if _, err := svc.Register(callerCtx("ada"), &participant.RegisterRequest{Role: "student", Name: "Ada", NaturalID: "M001"}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	// Same subject, same role, different credential.
	_, err := svc.Register(callerCtx("ada"), &participant.RegisterRequest{Role: "student", Name: "Cleo", NaturalID: "M002"})
	if !apperrors.Is(err, apperrors.CategoryDataConflict) {
		t.Fatalf("expected CategoryDataConflict, got %v", err)
	}
}

func TestRegistrationService_Register_Validation(t *testing.T) {
	svc, _ := setupService(t)

	cases := []struct {
		name string
		req  *participant.RegisterRequest
	}{
		{"unknown role", &participant.RegisterRequest{Role: "proctor", Name: "Ada", NaturalID: "M001"}},
		{"missing name", &participant.RegisterRequest{Role: "student", NaturalID: "M001"}},
		{"missing natural id", &participant.RegisterRequest{Role: "student", Name: "Ada"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(callerCtx("ada"), tc.req)
			if !apperrors.Is(err, apperrors.CategoryDataError) {
				t.Fatalf("expected CategoryDataError, got %v", err)
			}
		})
	}
}

func TestRegistrationService_GetProfile(t *testing.T) {
	svc, store := setupService(t)
	whitelistKey(t, store, credential.RoleStudent, "Ada", "M001")

	if _, err := svc.Register(callerCtx("ada"), &participant.RegisterRequest{Role: "student", Name: "Ada", NaturalID: "M001"}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	profile, err := svc.GetProfile(callerCtx("ada"), credential.RoleStudent)
	if err != nil {
		t.Fatalf("GetProfile() failed: %v", err)
	}
	if profile.Name != "Ada" || profile.NaturalID != "M001" || profile.SeqNo != 1 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.Paid {
		t.Fatal("new registration must start unpaid")
	}

	_, err = svc.GetProfile(callerCtx("stranger"), credential.RoleStudent)
	if !apperrors.Is(err, apperrors.CategoryResourceNotFound) {
		t.Fatalf("expected CategoryResourceNotFound, got %v", err)
	}
}
