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
		log.Println("creating eligibility table...")
		return mghelper.CreateSchema(ctx, db, &regstore.EligibilityDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping eligibility table...")
		return mghelper.DropTables(ctx, db, &regstore.EligibilityDao{})
	})
}
