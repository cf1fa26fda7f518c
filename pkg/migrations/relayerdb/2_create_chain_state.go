package relayerdb

import (
	"context"

	"github.com/chainsafe/stacks-relayer/pkg/db/dao"
	mghelper "github.com/chainsafe/stacks-relayer/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return mghelper.CreateSchema(ctx, db, &dao.ChainStateDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		return mghelper.DropTables(ctx, db, &dao.ChainStateDao{})
	})
}
