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
		log.Println("creating registry_counters table...")
		return mghelper.CreateSchema(ctx, db, &regstore.CounterDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping registry_counters table...")
		return mghelper.DropTables(ctx, db, &regstore.CounterDao{})
	})
}
