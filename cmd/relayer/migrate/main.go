package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chainsafe/stacks-relayer/pkg/config"
	"github.com/chainsafe/stacks-relayer/pkg/migrations/relayerdb"
	"github.com/chainsafe/stacks-relayer/pkg/pgutil"
	mghelper "github.com/chainsafe/stacks-relayer/pkg/pgutil/migrations"

	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config.example.yaml", "Path to configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, mghelper.Usage) }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading configuration file: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	db, err := pgutil.ConnectDB(&cfg.Store.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Running relayer database migrations")

	migrator := migrate.NewMigrator(db, relayerdb.Migrations)
	if err := mghelper.Run(context.Background(), migrator, flag.Arg(0), logger); err != nil {
		logger.Fatal("Migration failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
}
