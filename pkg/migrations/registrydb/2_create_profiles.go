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
		log.Println("creating profiles table...")
		if err := mghelper.CreateSchema(ctx, db, &regstore.ProfileDao{}); err != nil {
			return err
		}
		// One registration per caller and one binding per fingerprint,
		// both scoped to the role.
		if err := mghelper.CreateCompositeUniqueIndex(ctx, db, "profiles", "role", "subject"); err != nil {
			return err
		}
		return mghelper.CreateCompositeUniqueIndex(ctx, db, "profiles", "role", "fingerprint")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping profiles table...")
		return mghelper.DropTables(ctx, db, &regstore.ProfileDao{})
	})
}
