package migrations

import (
	"context"
	"testing"

	"github.com/chainsafe/stacks-relayer/pkg/migrations/relayerdb"
	"github.com/chainsafe/stacks-relayer/pkg/pgutil"
	"github.com/uptrace/bun/migrate"
)

func TestRelayerDBMigrations_UpAndDown(t *testing.T) {
	db := pgutil.SetupTestDB(t)
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, relayerdb.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if group.IsZero() {
		t.Fatal("expected migrations to run, but none were applied")
	}

	for _, table := range []string{"processed_messages", "chain_state", "bun_migrations"} {
		pgutil.AssertTableExists(t, db, table)
	}
	pgutil.AssertIndexExists(t, db, "idx_processed_messages_processed_at")
	pgutil.AssertIndexExists(t, db, "idx_processed_messages_success")

	if _, err := migrator.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}
	pgutil.AssertTableNotExists(t, db, "processed_messages")
	pgutil.AssertTableNotExists(t, db, "chain_state")
}
