package regstore

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/participant"
	"github.com/exwaizedd/exam-pass/pkg/pgutil"
	mghelper "github.com/exwaizedd/exam-pass/pkg/pgutil/migrations"
	"github.com/exwaizedd/exam-pass/pkg/whitelist"
)

func setupStore(t *testing.T) (context.Context, *pgStore) {
	t.Helper()
	requireDockerAccess(t)

	ctx := context.Background()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	if err := mghelper.CreateSchema(ctx, db, &EligibilityDao{}, &ProfileDao{}, &CounterDao{}, &EventDao{}); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if err := mghelper.CreateCompositeUniqueIndex(ctx, db, "profiles", "role", "subject"); err != nil {
		t.Fatalf("failed to create subject index: %v", err)
	}
	if err := mghelper.CreateCompositeUniqueIndex(ctx, db, "profiles", "role", "fingerprint"); err != nil {
		t.Fatalf("failed to create fingerprint index: %v", err)
	}

	return ctx, NewStore(db)
}

func requireDockerAccess(t *testing.T) {
	t.Helper()

	candidates := []string{
		"/var/run/docker.sock",
		filepath.Join(os.Getenv("HOME"), ".docker/run/docker.sock"),
	}

	for _, sock := range candidates {
		if sock == "" {
			continue
		}
		if _, err := os.Stat(sock); err != nil {
			continue
		}
		conn, err := (&net.Dialer{}).DialContext(context.Background(), "unix", sock)
		if err == nil {
			_ = conn.Close()
			return
		}
	}

	t.Skip("docker daemon socket is not accessible; skipping testcontainer-backed regstore tests")
}

func mustAddEligibility(t *testing.T, ctx context.Context, s *pgStore, role credential.Role, key credential.NaturalKey) string {
	t.Helper()
	fp := credential.Fingerprint(key)
	if err := s.AddEligibility(ctx, whitelist.New(role, fp, "seeded by test")); err != nil {
		t.Fatalf("failed to add eligibility: %v", err)
	}
	return fp
}

func TestPGEligibilityLifecycle(t *testing.T) {
	ctx, s := setupStore(t)

	key := credential.NaturalKey{Name: "Ada", ID: "M001"}
	fp := mustAddEligibility(t, ctx, s, credential.RoleStudent, key)

	ok, err := s.IsEligible(ctx, credential.RoleStudent, fp)
	if err != nil {
		t.Fatalf("IsEligible failed: %v", err)
	}
	if !ok {
		t.Fatal("fingerprint should be eligible")
	}

	if err := s.AddEligibility(ctx, whitelist.New(credential.RoleStudent, fp, "")); !errors.Is(err, ErrEligibilityExists) {
		t.Fatalf("expected ErrEligibilityExists, got %v", err)
	}

	// Same fingerprint under the other role is a separate entry
	if err := s.AddEligibility(ctx, whitelist.New(credential.RoleInvigilator, fp, "")); err != nil {
		t.Fatalf("cross-role add failed: %v", err)
	}
}

func TestPGRegisterLifecycle(t *testing.T) {
	ctx, s := setupStore(t)

	key := credential.NaturalKey{Name: "Ada", ID: "M001"}
	fp := mustAddEligibility(t, ctx, s, credential.RoleStudent, key)

	created, err := s.CreateProfile(ctx, participant.New(credential.RoleStudent, "ada", key))
	if err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}
	if created.SeqNo != 1 {
		t.Fatalf("first registration should get seq 1, got %d", created.SeqNo)
	}

	if _, err := s.CreateProfile(ctx, participant.New(credential.RoleStudent, "bo", key)); !errors.Is(err, ErrFingerprintBound) {
		t.Fatalf("expected ErrFingerprintBound, got %v", err)
	}

	key2 := credential.NaturalKey{Name: "Bo", ID: "M002"}
	mustAddEligibility(t, ctx, s, credential.RoleStudent, key2)
	if _, err := s.CreateProfile(ctx, participant.New(credential.RoleStudent, "ada", key2)); !errors.Is(err, ErrProfileExists) {
		t.Fatalf("expected ErrProfileExists, got %v", err)
	}

	// Revoke, then the same credential is claimable by a new identity with
	// a fresh sequence number
	removed, err := s.RevokeProfile(ctx, credential.RoleStudent, fp)
	if err != nil {
		t.Fatalf("RevokeProfile failed: %v", err)
	}
	if removed.Subject != "ada" {
		t.Fatalf("unexpected revoked subject %q", removed.Subject)
	}

	fresh, err := s.CreateProfile(ctx, participant.New(credential.RoleStudent, "bo2", key))
	if err != nil {
		t.Fatalf("register after revoke failed: %v", err)
	}
	if fresh.SeqNo != 2 {
		t.Fatalf("counter must keep incrementing after revoke, got seq %d", fresh.SeqNo)
	}
}

func TestPGRemoveEligibilityCascade(t *testing.T) {
	ctx, s := setupStore(t)

	key := credential.NaturalKey{Name: "Ada", ID: "M001"}
	fp := mustAddEligibility(t, ctx, s, credential.RoleStudent, key)

	if _, err := s.RemoveEligibility(ctx, credential.RoleStudent, fp); !errors.Is(err, ErrNotBound) {
		t.Fatalf("expected ErrNotBound for unbound entry, got %v", err)
	}

	if _, err := s.CreateProfile(ctx, participant.New(credential.RoleStudent, "ada", key)); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}

	removed, err := s.RemoveEligibility(ctx, credential.RoleStudent, fp)
	if err != nil {
		t.Fatalf("RemoveEligibility failed: %v", err)
	}
	if removed.Subject != "ada" {
		t.Fatalf("unexpected removed subject %q", removed.Subject)
	}

	// No partial deletion observable: entry, binding and profile all gone
	pgutil.AssertRowCount(t, s.db, "eligibility", 0)
	pgutil.AssertRowCount(t, s.db, "profiles", 0)

	if _, err := s.CreateProfile(ctx, participant.New(credential.RoleStudent, "bo", key)); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible after removal, got %v", err)
	}
}

func TestPGPassLifecycle(t *testing.T) {
	ctx, s := setupStore(t)

	key := credential.NaturalKey{Name: "Ada", ID: "M001"}
	mustAddEligibility(t, ctx, s, credential.RoleStudent, key)
	if _, err := s.CreateProfile(ctx, participant.New(credential.RoleStudent, "ada", key)); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}

	mint := func(id uint64) MintFunc {
		return func(context.Context) (uint64, error) { return id, nil }
	}

	if _, err := s.IssuePass(ctx, "ada", mint(0)); !errors.Is(err, ErrFeesUnpaid) {
		t.Fatalf("expected ErrFeesUnpaid, got %v", err)
	}

	fee := decimal.RequireFromString("150.00")
	paid, err := s.MarkPaid(ctx, "ada", fee)
	if err != nil {
		t.Fatalf("MarkPaid failed: %v", err)
	}
	if !paid.Paid || !paid.FeeAmount.Equal(fee) {
		t.Fatalf("unexpected paid state: paid=%v fee=%s", paid.Paid, paid.FeeAmount)
	}

	if _, err := s.MarkPaid(ctx, "ada", fee); !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}

	issued, err := s.IssuePass(ctx, "ada", mint(0))
	if err != nil {
		t.Fatalf("IssuePass failed: %v", err)
	}
	if issued.PassID == nil || *issued.PassID != 0 {
		t.Fatalf("unexpected pass id %v", issued.PassID)
	}

	if _, err := s.IssuePass(ctx, "ada", mint(1)); !errors.Is(err, ErrPassIssued) {
		t.Fatalf("expected ErrPassIssued, got %v", err)
	}

	// Pass state survives a round trip
	got, err := s.GetProfile(ctx, credential.RoleStudent, "ada")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if !got.PassRequested || got.PassID == nil || *got.PassID != 0 {
		t.Fatalf("pass state not persisted: %+v", got)
	}
}

func TestPGEventLog(t *testing.T) {
	ctx, s := setupStore(t)

	ev := events.New(events.KindStudentRegistered)
	ev.Subject = "ada"
	ev.Role = credential.RoleStudent
	ev.Name = "Ada"
	ev.NaturalID = "M001"
	ev.SeqNo = 1
	if err := s.RecordEvent(ctx, ev); err != nil {
		t.Fatalf("RecordEvent failed: %v", err)
	}

	passID := uint64(0)
	ev2 := events.New(events.KindPassRequested)
	ev2.Subject = "ada"
	ev2.Role = credential.RoleStudent
	ev2.PassID = &passID
	if err := s.RecordEvent(ctx, ev2); err != nil {
		t.Fatalf("RecordEvent failed: %v", err)
	}

	got, err := s.ListEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	for _, e := range got {
		if e.Subject != "ada" {
			t.Fatalf("unexpected subject %q", e.Subject)
		}
	}
}

func TestPGListEligibilityBoundState(t *testing.T) {
	ctx, s := setupStore(t)

	adaKey := credential.NaturalKey{Name: "Ada", ID: "M001"}
	boKey := credential.NaturalKey{Name: "Bo", ID: "M002"}
	adaFP := mustAddEligibility(t, ctx, s, credential.RoleStudent, adaKey)
	mustAddEligibility(t, ctx, s, credential.RoleStudent, boKey)

	if _, err := s.CreateProfile(ctx, participant.New(credential.RoleStudent, "ada", adaKey)); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}

	entries, err := s.ListEligibility(ctx, credential.RoleStudent)
	if err != nil {
		t.Fatalf("ListEligibility failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Fingerprint == adaFP && !e.Bound {
			t.Fatal("consumed entry should be reported bound")
		}
		if e.Fingerprint != adaFP && e.Bound {
			t.Fatal("unconsumed entry should not be reported bound")
		}
	}
}
