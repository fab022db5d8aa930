package mutation

import (
	"context"
	"fmt"
	"slices"

	"github.com/bft-labs/folio/internal/cache"
	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/livequery"
	"github.com/bft-labs/folio/internal/ports"
)

// Collection writes T records to a table and keeps the cached collection
// under key in step.
type Collection[T domain.Record[T]] struct {
	cache  *cache.Client
	key    string
	table  ports.Table
	logger ports.Logger
}

// NewCollection creates a collection writer.
func NewCollection[T domain.Record[T]](c *cache.Client, key string, table ports.Table, logger ports.Logger) *Collection[T] {
	return &Collection[T]{cache: c, key: key, table: table, logger: logger}
}

// Create inserts rec. The cache shows rec at the head of the collection
// under a provisional id until the store confirms it.
func (m *Collection[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	snap := m.cache.Snapshot(m.key)

	pid := nextProvisionalID()
	speculative := rec.WithRecordID(pid)
	cache.MutateExisting(m.cache, m.key, func(old []T) []T {
		return append([]T{speculative}, old...)
	})

	raw, err := m.table.Insert(ctx, rec.WithRecordID(0))
	if err != nil {
		return zero, m.rollback(snap, "create", err)
	}
	confirmed, err := livequery.DecodeRow[T](raw)
	if err != nil {
		return zero, m.rollback(snap, "create", err)
	}

	cache.MutateExisting(m.cache, m.key, func(old []T) []T {
		return confirm(old, pid, confirmed)
	})
	return confirmed, nil
}

// Update merges patch into the record with id, in place.
func (m *Collection[T]) Update(ctx context.Context, id domain.ID, patch domain.Patch) (T, error) {
	var zero T
	snap := m.cache.Snapshot(m.key)

	var mergeErr error
	cache.MutateExisting(m.cache, m.key, func(old []T) []T {
		i := domain.IndexOf(old, id)
		if i < 0 {
			return old
		}
		merged, err := domain.Merge(old[i], patch)
		if err != nil {
			mergeErr = err
			return old
		}
		out := slices.Clone(old)
		out[i] = merged
		return out
	})
	if mergeErr != nil {
		m.cache.Restore(snap)
		return zero, mergeErr
	}

	raw, err := m.table.Update(ctx, id, patch)
	if err != nil {
		return zero, m.rollback(snap, "update", err)
	}
	confirmed, err := livequery.DecodeRow[T](raw)
	if err != nil {
		return zero, m.rollback(snap, "update", err)
	}

	cache.MutateExisting(m.cache, m.key, func(old []T) []T {
		i := domain.IndexOf(old, id)
		if i < 0 {
			return old
		}
		out := slices.Clone(old)
		out[i] = confirmed
		return out
	})
	return confirmed, nil
}

// Delete removes the record with id. The cache drops it immediately.
func (m *Collection[T]) Delete(ctx context.Context, id domain.ID) error {
	snap := m.cache.Snapshot(m.key)

	cache.MutateExisting(m.cache, m.key, func(old []T) []T {
		i := domain.IndexOf(old, id)
		if i < 0 {
			return old
		}
		return slices.Delete(slices.Clone(old), i, i+1)
	})

	if err := m.table.Delete(ctx, id); err != nil {
		return m.rollback(snap, "delete", err)
	}
	return nil
}

func (m *Collection[T]) rollback(snap cache.Snapshot, op string, cause error) error {
	return rollback(m.cache, m.logger, snap, op, cause)
}

// confirm swaps the provisional record for the confirmed one. When the feed
// already delivered the confirmed id, the provisional record is dropped.
func confirm[T domain.Record[T]](records []T, provisional domain.ID, rec T) []T {
	out := slices.Clone(records)
	p := domain.IndexOf(out, provisional)
	if i := domain.IndexOf(out, rec.RecordID()); i >= 0 {
		out[i] = rec
		if p >= 0 {
			out = slices.Delete(out, p, p+1)
		}
		return out
	}
	if p >= 0 {
		out[p] = rec
		return out
	}
	return append([]T{rec}, out...)
}

func rollback(c *cache.Client, logger ports.Logger, snap cache.Snapshot, op string, cause error) error {
	c.Restore(snap)
	logger.Warn("optimistic write rolled back",
		ports.String("key", snap.Key()),
		ports.String("op", op),
		ports.Err(cause))
	return fmt.Errorf("%s %s: %w: %w", op, snap.Key(), domain.ErrWriteFailed, cause)
}
