package interfaces

import (
	"context"

	"livepoll/pkg/types"
)

// HistoryStore is the append-only log of ended polls. Records are appended
// exactly once per poll, at the Ended transition, and read back oldest first.
type HistoryStore interface {
	Append(ctx context.Context, record *types.HistoryRecord) error
	All(ctx context.Context) ([]*types.HistoryRecord, error)
	Close() error
}
