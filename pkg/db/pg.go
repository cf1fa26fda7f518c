package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/chainsafe/stacks-relayer/pkg/db/dao"
	"github.com/uptrace/bun"
)

// PGStore is a Store backed by PostgreSQL. The schema is created by the relayerdb migrations.
type PGStore struct {
	db *bun.DB
}

// NewPGStore wraps an open bun connection
func NewPGStore(db *bun.DB) *PGStore {
	return &PGStore{db: db}
}

// Close closes the database connection
func (s *PGStore) Close() error {
	return s.db.Close()
}

func (s *PGStore) GetRecord(ctx context.Context, messageID string) (*bridge.ProcessedMessageRecord, bool, error) {
	row := new(dao.ProcessedMessageDao)
	err := s.db.NewSelect().
		Model(row).
		Where("message_id = ?", messageID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get record %s: %w", messageID, err)
	}
	return row.ToRecord(), true, nil
}

func (s *PGStore) SaveRecord(ctx context.Context, rec *bridge.ProcessedMessageRecord) error {
	_, err := s.db.NewInsert().
		Model(dao.FromRecord(rec)).
		On("CONFLICT (message_id) DO UPDATE").
		Set("success = EXCLUDED.success").
		Set("error = EXCLUDED.error").
		Set("destination_tx_hash = EXCLUDED.destination_tx_hash").
		Set("retry_count = EXCLUDED.retry_count").
		Set("processed_at = EXCLUDED.processed_at").
		Where("?TableAlias.success = FALSE").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.MessageID, err)
	}
	return nil
}

func (s *PGStore) ListRecords(ctx context.Context, limit int) ([]*bridge.ProcessedMessageRecord, error) {
	var rows []dao.ProcessedMessageDao
	q := s.db.NewSelect().
		Model(&rows).
		OrderExpr("processed_at DESC, message_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	out := make([]*bridge.ProcessedMessageRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToRecord())
	}
	return out, nil
}

// LoadHeight retrieves the last processed height for a chain
func (s *PGStore) LoadHeight(ctx context.Context, chain string) (uint64, bool, error) {
	state := new(dao.ChainStateDao)
	err := s.db.NewSelect().
		Model(state).
		Where("chain = ?", chain).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load chain state for %s: %w", chain, err)
	}
	return uint64(state.LastHeight), true, nil
}

// SaveHeight updates the last processed height for a chain
func (s *PGStore) SaveHeight(ctx context.Context, chain string, height uint64) error {
	state := &dao.ChainStateDao{
		Chain:      chain,
		LastHeight: int64(height),
		UpdatedAt:  time.Now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(state).
		On("CONFLICT (chain) DO UPDATE").
		Set("last_height = EXCLUDED.last_height").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save chain state for %s: %w", chain, err)
	}
	return nil
}
