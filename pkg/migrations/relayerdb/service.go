// Package relayerdb holds the migrations for the relayer's postgres record store
package relayerdb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the relayer database
var Migrations = migrate.NewMigrations()
