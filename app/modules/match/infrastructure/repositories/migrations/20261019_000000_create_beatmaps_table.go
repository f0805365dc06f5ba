package matchmigrations

import (
	"context"
	"fmt"

	matchdb "github.com/scuffedaim/matchview/app/modules/match/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating beatmaps table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().
				Model((*matchdb.Beatmap)(nil)).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create beatmaps table: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`CREATE INDEX IF NOT EXISTS idx_beatmaps_set_id ON beatmaps(set_id);`,
			); err != nil {
				return fmt.Errorf("failed to create beatmaps set_id index: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping beatmaps table...")

		if _, err := db.NewDropTable().
			Model((*matchdb.Beatmap)(nil)).
			IfExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop beatmaps table: %w", err)
		}
		return nil
	})
}
