package db

import (
	"context"
	"sort"
	"sync"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
)

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]bridge.ProcessedMessageRecord
	heights map[string]uint64
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]bridge.ProcessedMessageRecord),
		heights: make(map[string]uint64),
	}
}

func (s *MemoryStore) GetRecord(_ context.Context, messageID string) (*bridge.ProcessedMessageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[messageID]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (s *MemoryStore) SaveRecord(_ context.Context, rec *bridge.ProcessedMessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.records[rec.MessageID]; ok && cur.Success {
		return nil
	}
	s.records[rec.MessageID] = *rec
	return nil
}

func (s *MemoryStore) ListRecords(_ context.Context, limit int) ([]*bridge.ProcessedMessageRecord, error) {
	s.mu.RLock()
	out := make([]*bridge.ProcessedMessageRecord, 0, len(s.records))
	for _, rec := range s.records {
		r := rec
		out = append(out, &r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) LoadHeight(_ context.Context, chain string) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.heights[chain]
	return h, ok, nil
}

func (s *MemoryStore) SaveHeight(_ context.Context, chain string, height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heights[chain] = height
	return nil
}

func (s *MemoryStore) Close() error { return nil }
