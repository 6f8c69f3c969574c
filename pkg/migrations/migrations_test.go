package migrations

import (
	"context"
	"testing"

	"github.com/uptrace/bun/migrate"

	"github.com/exwaizedd/exam-pass/pkg/migrations/registrydb"
	"github.com/exwaizedd/exam-pass/pkg/pgutil"
)

func TestRegistryMigrations_Apply(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, registrydb.Migrations)

	err := migrator.Init(ctx)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if group.IsZero() {
		t.Error("Expected migrations to run, but none were applied")
	}

	expectedTables := []string{
		"eligibility",
		"profiles",
		"registry_counters",
		"registry_events",
		"bun_migrations",
	}
	for _, table := range expectedTables {
		pgutil.AssertTableExists(t, db, table)
	}

	pgutil.AssertIndexExists(t, db, "idx_profiles_role_subject")
	pgutil.AssertIndexExists(t, db, "idx_profiles_role_fingerprint")
	pgutil.AssertIndexExists(t, db, "idx_registry_events_kind")
	pgutil.AssertIndexExists(t, db, "idx_registry_events_subject")
}

func TestRegistryMigrations_Rollback(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, registrydb.Migrations)

	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	// Roll every group back down
	for {
		group, err := migrator.Rollback(ctx)
		if err != nil {
			t.Fatalf("Rollback() failed: %v", err)
		}
		if group.IsZero() {
			break
		}
	}

	for _, table := range []string{"eligibility", "profiles", "registry_counters", "registry_events"} {
		pgutil.AssertTableNotExists(t, db, table)
	}
}
