package mutation

import (
	"context"

	"github.com/bft-labs/folio/internal/cache"
	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/livequery"
	"github.com/bft-labs/folio/internal/ports"
)

// Singleton writes the single row id of a table and keeps the cached entry
// under key in step.
type Singleton[T domain.Record[T]] struct {
	cache  *cache.Client
	key    string
	id     domain.ID
	table  ports.Table
	logger ports.Logger
}

// NewSingleton creates a singleton writer.
func NewSingleton[T domain.Record[T]](c *cache.Client, key string, id domain.ID, table ports.Table, logger ports.Logger) *Singleton[T] {
	return &Singleton[T]{cache: c, key: key, id: id, table: table, logger: logger}
}

// Update merges patch into the row.
func (m *Singleton[T]) Update(ctx context.Context, patch domain.Patch) (T, error) {
	var zero T
	snap := m.cache.Snapshot(m.key)

	var mergeErr error
	cache.MutateExisting(m.cache, m.key, func(old T) T {
		merged, err := domain.Merge(old, patch)
		if err != nil {
			mergeErr = err
			return old
		}
		return merged
	})
	if mergeErr != nil {
		m.cache.Restore(snap)
		return zero, mergeErr
	}

	raw, err := m.table.Update(ctx, m.id, patch)
	if err != nil {
		return zero, rollback(m.cache, m.logger, snap, "update", err)
	}
	confirmed, err := livequery.DecodeRow[T](raw)
	if err != nil {
		return zero, rollback(m.cache, m.logger, snap, "update", err)
	}
	cache.MutateExisting(m.cache, m.key, func(T) T { return confirmed })
	return confirmed, nil
}
