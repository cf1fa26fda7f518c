// Package db persists processed-message records and scan checkpoints.
//
// Nothing here is authoritative: the destination contract's own processed check
// decides whether a message may be relayed. The store only avoids redundant work
// and keeps history visible across restarts.
package db

import (
	"context"
	"fmt"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/chainsafe/stacks-relayer/pkg/config"
	"github.com/chainsafe/stacks-relayer/pkg/pgutil"
	"go.uber.org/zap"
)

// Store holds processed-message records and per-chain checkpoints
type Store interface {
	// GetRecord returns the latest record for a message id
	GetRecord(ctx context.Context, messageID string) (*bridge.ProcessedMessageRecord, bool, error)
	// SaveRecord stores rec as the record of its message id. A record is never
	// edited in place: a later attempt supersedes a failed one with a new record
	// carrying RetryCount+1, and nothing supersedes a successful record.
	SaveRecord(ctx context.Context, rec *bridge.ProcessedMessageRecord) error
	// ListRecords returns up to limit records, newest first; limit <= 0 returns all
	ListRecords(ctx context.Context, limit int) ([]*bridge.ProcessedMessageRecord, error)

	LoadHeight(ctx context.Context, chain string) (uint64, bool, error)
	SaveHeight(ctx context.Context, chain string, height uint64) error

	Close() error
}

// Open builds the store selected by cfg.Driver
func Open(ctx context.Context, cfg *config.StoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case config.StoreMemory, "":
		logger.Info("Using in-memory record store; records vanish on restart")
		return NewMemoryStore(), nil
	case config.StorePostgres:
		bunDB, err := pgutil.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", bridge.ErrFatalStartup, err)
		}
		logger.Info("Using postgres record store", zap.String("database", cfg.Database.Database))
		return NewPGStore(bunDB), nil
	case config.StoreRedis:
		s, err := NewRedisStore(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", bridge.ErrFatalStartup, err)
		}
		logger.Info("Using redis record store", zap.String("addr", cfg.Redis.Addr))
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", bridge.ErrFatalStartup, cfg.Driver)
	}
}
