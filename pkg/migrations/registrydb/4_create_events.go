package registrydb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/exwaizedd/exam-pass/pkg/pgutil/migrations"
	"github.com/exwaizedd/exam-pass/pkg/regstore"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating registry_events table...")
		if err := mghelper.CreateSchema(ctx, db, &regstore.EventDao{}); err != nil {
			return err
		}
		// Create indexes
		return mghelper.CreateModelIndexes(ctx, db, &regstore.EventDao{}, "kind", "subject", "recorded_at")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping registry_events table...")
		return mghelper.DropTables(ctx, db, &regstore.EventDao{})
	})
}
