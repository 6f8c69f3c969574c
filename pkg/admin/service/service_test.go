package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	apperrors "github.com/exwaizedd/exam-pass/pkg/app/errors"
	"github.com/exwaizedd/exam-pass/pkg/auth"
	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/ledger"
	"github.com/exwaizedd/exam-pass/pkg/participant"
	"github.com/exwaizedd/exam-pass/pkg/pass"
	passservice "github.com/exwaizedd/exam-pass/pkg/pass/service"
	"github.com/exwaizedd/exam-pass/pkg/regstore"
	"github.com/exwaizedd/exam-pass/pkg/whitelist"
)

func adminCtx() context.Context {
	return auth.WithCaller(context.Background(), &auth.Caller{Subject: "registry-admin", Admin: true})
}

func callerCtx(subject string) context.Context {
	return auth.WithCaller(context.Background(), &auth.Caller{Subject: subject})
}

func setupAdmin(t *testing.T) (Service, regstore.Store) {
	t.Helper()
	store := regstore.NewMemoryStore()
	logger := zap.NewNop()
	emitter := events.MultiEmitter{
		events.NewLogEmitter(logger),
		events.NewStoreEmitter(store, logger),
	}
	passes := passservice.NewService(store, ledger.NewMemoryLedger(), emitter, logger)
	return NewService(store, passes, emitter, logger), store
}

func registerAs(t *testing.T, store regstore.Store, role credential.Role, subject, name, naturalID string) *participant.Profile {
	t.Helper()
	created, err := store.CreateProfile(context.Background(), participant.New(role, subject, credential.NaturalKey{Name: name, ID: naturalID}))
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return created
}

func TestAdminService_RequiresAdmin(t *testing.T) {
	svc, _ := setupAdmin(t)

	_, err := svc.AddEligible(callerCtx("ada"), &whitelist.AddRequest{Role: "student", Name: "Ada", NaturalID: "M001"})
	if !apperrors.Is(err, apperrors.CategoryForbidden) {
		t.Fatalf("expected CategoryForbidden for non-admin, got %v", err)
	}

	_, err = svc.AddEligible(context.Background(), &whitelist.AddRequest{Role: "student", Name: "Ada", NaturalID: "M001"})
	if !apperrors.Is(err, apperrors.CategoryUnauthorized) {
		t.Fatalf("expected CategoryUnauthorized for anonymous, got %v", err)
	}
}

func TestAdminService_AddEligible(t *testing.T) {
	svc, store := setupAdmin(t)

	resp, err := svc.AddEligible(adminCtx(), &whitelist.AddRequest{Role: "student", Name: "Ada", NaturalID: "M001", Note: "2026 cohort"})
	if err != nil {
		t.Fatalf("AddEligible() failed: %v", err)
	}
	wantFp := credential.Fingerprint(credential.NaturalKey{Name: "Ada", ID: "M001"})
	if resp.Fingerprint != wantFp {
		t.Fatalf("fingerprint mismatch: got %s, want %s", resp.Fingerprint, wantFp)
	}

	ok, err := store.IsEligible(context.Background(), credential.RoleStudent, wantFp)
	if err != nil || !ok {
		t.Fatalf("expected fingerprint to be eligible, ok=%v err=%v", ok, err)
	}

	// Idempotent re-add is a conflict.
	_, err = svc.AddEligible(adminCtx(), &whitelist.AddRequest{Role: "student", Fingerprint: wantFp})
	if !apperrors.Is(err, apperrors.CategoryDataConflict) {
		t.Fatalf("expected CategoryDataConflict, got %v", err)
	}
}

func TestAdminService_AddEligible_Validation(t *testing.T) {
	svc, _ := setupAdmin(t)

	cases := []struct {
		name string
		req  *whitelist.AddRequest
	}{
		{"unknown role", &whitelist.AddRequest{Role: "proctor", Name: "Ada", NaturalID: "M001"}},
		{"bad fingerprint", &whitelist.AddRequest{Role: "student", Fingerprint: "0x1234"}},
		{"no identification", &whitelist.AddRequest{Role: "student"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddEligible(adminCtx(), tc.req)
			if !apperrors.Is(err, apperrors.CategoryDataError) {
				t.Fatalf("expected CategoryDataError, got %v", err)
			}
		})
	}
}

func TestAdminService_RemoveEligible_RequiresBinding(t *testing.T) {
	svc, _ := setupAdmin(t)

	if _, err := svc.AddEligible(adminCtx(), &whitelist.AddRequest{Role: "student", Name: "Ada", NaturalID: "M001"}); err != nil {
		t.Fatalf("AddEligible() failed: %v", err)
	}

	// Whitelisted but never registered: nothing to remove.
	err := svc.RemoveEligible(adminCtx(), &whitelist.RemoveRequest{Role: "student", Name: "Ada", NaturalID: "M001"})
	if !apperrors.Is(err, apperrors.CategoryResourceNotFound) {
		t.Fatalf("expected CategoryResourceNotFound, got %v", err)
	}
}

func TestAdminService_RemoveEligible_Cascades(t *testing.T) {
	svc, store := setupAdmin(t)

	if _, err := svc.AddEligible(adminCtx(), &whitelist.AddRequest{Role: "student", Name: "Ada", NaturalID: "M001"}); err != nil {
		t.Fatalf("AddEligible() failed: %v", err)
	}
	registerAs(t, store, credential.RoleStudent, "ada", "Ada", "M001")

	if err := svc.RemoveEligible(adminCtx(), &whitelist.RemoveRequest{Role: "student", Name: "Ada", NaturalID: "M001"}); err != nil {
		t.Fatalf("RemoveEligible() failed: %v", err)
	}

	// Profile, binding and eligibility entry are all gone.
	if _, err := store.GetProfile(context.Background(), credential.RoleStudent, "ada"); err != regstore.ErrProfileNotFound {
		t.Fatalf("expected profile gone, got %v", err)
	}
	fp := credential.Fingerprint(credential.NaturalKey{Name: "Ada", ID: "M001"})
	ok, _ := store.IsEligible(context.Background(), credential.RoleStudent, fp)
	if ok {
		t.Fatal("expected eligibility entry gone")
	}
}

func TestAdminService_ListEligible_BoundState(t *testing.T) {
	svc, store := setupAdmin(t)

	if _, err := svc.AddEligible(adminCtx(), &whitelist.AddRequest{Role: "student", Name: "Ada", NaturalID: "M001"}); err != nil {
		t.Fatalf("AddEligible() failed: %v", err)
	}
	if _, err := svc.AddEligible(adminCtx(), &whitelist.AddRequest{Role: "student", Name: "Cleo", NaturalID: "M002"}); err != nil {
		t.Fatalf("AddEligible() failed: %v", err)
	}
	registerAs(t, store, credential.RoleStudent, "ada", "Ada", "M001")

	entries, err := svc.ListEligible(adminCtx(), credential.RoleStudent)
	if err != nil {
		t.Fatalf("ListEligible() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	bound := map[string]bool{}
	for _, e := range entries {
		bound[e.Fingerprint] = e.Bound
	}
	adaFp := credential.Fingerprint(credential.NaturalKey{Name: "Ada", ID: "M001"})
	cleoFp := credential.Fingerprint(credential.NaturalKey{Name: "Cleo", ID: "M002"})
	if !bound[adaFp] {
		t.Fatal("Ada's fingerprint should be bound")
	}
	if bound[cleoFp] {
		t.Fatal("Cleo's fingerprint should be unbound")
	}
}

func TestAdminService_Revoke_LeavesEligibility(t *testing.T) {
	svc, store := setupAdmin(t)

	if _, err := svc.AddEligible(adminCtx(), &whitelist.AddRequest{Role: "student", Name: "Ada", NaturalID: "M001"}); err != nil {
		t.Fatalf("AddEligible() failed: %v", err)
	}
	registerAs(t, store, credential.RoleStudent, "ada", "Ada", "M001")

	if err := svc.Revoke(adminCtx(), &whitelist.RemoveRequest{Role: "student", Name: "Ada", NaturalID: "M001"}); err != nil {
		t.Fatalf("Revoke() failed: %v", err)
	}

	// Profile is gone but the credential stays eligible for a fresh claim.
	if _, err := store.GetProfile(context.Background(), credential.RoleStudent, "ada"); err != regstore.ErrProfileNotFound {
		t.Fatalf("expected profile gone, got %v", err)
	}
	fp := credential.Fingerprint(credential.NaturalKey{Name: "Ada", ID: "M001"})
	ok, _ := store.IsEligible(context.Background(), credential.RoleStudent, fp)
	if !ok {
		t.Fatal("eligibility entry must survive a revoke")
	}

	// Re-claim by a new identity gets a fresh sequence number.
	again := registerAs(t, store, credential.RoleStudent, "ada2", "Ada", "M001")
	if again.SeqNo != 2 {
		t.Fatalf("re-registration should get seq no 2, got %d", again.SeqNo)
	}

	// A second revoke finds no binding.
	err := svc.Revoke(adminCtx(), &whitelist.RemoveRequest{Role: "student", Fingerprint: fp, Name: "ignored", NaturalID: "ignored"})
	if err == nil {
		t.Fatal("expected error revoking twice without re-registering")
	}
}

func TestAdminService_MarkPaidAndQueryPaid(t *testing.T) {
	svc, store := setupAdmin(t)

	if _, err := svc.AddEligible(adminCtx(), &whitelist.AddRequest{Role: "student", Name: "Ada", NaturalID: "M001"}); err != nil {
		t.Fatalf("AddEligible() failed: %v", err)
	}
	registerAs(t, store, credential.RoleStudent, "ada", "Ada", "M001")

	resp, err := svc.MarkPaid(adminCtx(), &pass.MarkPaidRequest{Subject: "ada", FeeAmount: "150.00"})
	if err != nil {
		t.Fatalf("MarkPaid() failed: %v", err)
	}
	if !resp.Paid {
		t.Fatal("expected paid=true")
	}

	queried, err := svc.QueryPaid(adminCtx(), "ada")
	if err != nil {
		t.Fatalf("QueryPaid() failed: %v", err)
	}
	if !queried.Paid {
		t.Fatal("expected paid=true from query")
	}

	_, err = svc.QueryPaid(callerCtx("ada"), "ada")
	if !apperrors.Is(err, apperrors.CategoryForbidden) {
		t.Fatalf("QueryPaid is admin-only, got %v", err)
	}
}

func TestAdminService_ListEvents(t *testing.T) {
	svc, _ := setupAdmin(t)

	if _, err := svc.AddEligible(adminCtx(), &whitelist.AddRequest{Role: "student", Name: "Ada", NaturalID: "M001"}); err != nil {
		t.Fatalf("AddEligible() failed: %v", err)
	}
	if _, err := svc.AddEligible(adminCtx(), &whitelist.AddRequest{Role: "invigilator", Name: "Bo", NaturalID: "S001"}); err != nil {
		t.Fatalf("AddEligible() failed: %v", err)
	}

	evs, err := svc.ListEvents(adminCtx(), 10)
	if err != nil {
		t.Fatalf("ListEvents() failed: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	// Newest first.
	if evs[0].Kind != events.KindEligibilityAdded {
		t.Fatalf("unexpected event kind %q", evs[0].Kind)
	}
	if evs[0].Role != "invigilator" {
		t.Fatalf("expected newest event first, got role %q", evs[0].Role)
	}
}
