// Package history stores the append-only log of ended polls. The default
// store is an in-memory list bounded by process lifetime; an SQLite-backed
// store is available when a database path is configured.
package history

import (
	"context"
	"sync"

	"livepoll/pkg/types"
)

// MemoryStore keeps history records in an in-memory slice, insertion
// ordered. Append is O(1); there is no size cap or eviction.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*types.HistoryRecord
}

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds a record to the end of the log.
func (s *MemoryStore) Append(_ context.Context, record *types.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// All returns every record, oldest first. Consumers reverse for
// most-recent-first display.
func (s *MemoryStore) All(_ context.Context) ([]*types.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.HistoryRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
