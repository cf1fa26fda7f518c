package migrations

import (
	"context"
	"errors"
	"testing"

	"github.com/chainsafe/stacks-relayer/pkg/config"
	"github.com/chainsafe/stacks-relayer/pkg/pgutil"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type widgetDao struct {
	bun.BaseModel `bun:"table:widgets"`
	ID            int64  `bun:",pk,autoincrement"`
	Name          string `bun:",notnull,type:varchar(100)"`
}

func TestConnectDB_InvalidHost(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "invalid-host-that-does-not-exist",
		Port:     5432,
		User:     "test",
		Password: "test",
		Database: "test",
		SSLMode:  "disable",
	}

	db, err := pgutil.ConnectDB(cfg)
	if err == nil {
		_ = db.Close()
		t.Error("ConnectDB() should fail with invalid host")
	}
}

func TestSchemaHelpers(t *testing.T) {
	db := pgutil.SetupTestDB(t)
	ctx := context.Background()

	if err := CreateSchema(ctx, db, &widgetDao{}); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	pgutil.AssertTableExists(t, db, "widgets")

	if err := CreateSchema(ctx, db, &widgetDao{}); err != nil {
		t.Errorf("CreateSchema() second call failed: %v", err)
	}

	if err := CreateModelIndexes(ctx, db, &widgetDao{}, "name"); err != nil {
		t.Fatalf("CreateModelIndexes() failed: %v", err)
	}
	pgutil.AssertIndexExists(t, db, "idx_widgets_name")

	if err := DropModelIndexes(ctx, db, &widgetDao{}, "name"); err != nil {
		t.Fatalf("DropModelIndexes() failed: %v", err)
	}

	if err := DropTables(ctx, db, &widgetDao{}); err != nil {
		t.Fatalf("DropTables() failed: %v", err)
	}
	pgutil.AssertTableNotExists(t, db, "widgets")

	if err := DropTables(ctx, db, &widgetDao{}); err != nil {
		t.Errorf("DropTables() second call failed: %v", err)
	}
}

func TestModelIndexName(t *testing.T) {
	if _, err := ModelIndexName(nil, nil, "name"); err == nil {
		t.Error("ModelIndexName() should reject a nil model")
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	err := Run(context.Background(), nil, "sideways", zap.NewNop())
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Run() error = %v, want ErrUnknownCommand", err)
	}
}
