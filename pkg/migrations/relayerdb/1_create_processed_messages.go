package relayerdb

import (
	"context"

	"github.com/chainsafe/stacks-relayer/pkg/db/dao"
	mghelper "github.com/chainsafe/stacks-relayer/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if err := mghelper.CreateSchema(ctx, db, &dao.ProcessedMessageDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.ProcessedMessageDao{}, "processed_at", "success")
	}, func(ctx context.Context, db *bun.DB) error {
		if err := mghelper.DropModelIndexes(ctx, db, &dao.ProcessedMessageDao{}, "processed_at", "success"); err != nil {
			return err
		}
		return mghelper.DropTables(ctx, db, &dao.ProcessedMessageDao{})
	})
}
