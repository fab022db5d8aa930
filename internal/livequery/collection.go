package livequery

import (
	"context"
	"slices"
	"time"

	"github.com/bft-labs/folio/internal/cache"
	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/ports"
)

// CollectionConfig describes a collection query.
type CollectionConfig struct {
	// Key is the cache key, e.g. "projects".
	Key string

	// Table is the data store table.
	Table string

	// Order sorts the read-all.
	Order domain.Order

	// StaleTime is how long a fetched value is fresh. Zero means forever.
	StaleTime time.Duration
}

// Collection is the query source for a table of T records.
type Collection[T domain.Record[T]] struct {
	cfg     CollectionConfig
	reg     *Registry
	table   ports.Table
	changes replayLog[domain.Change[T]]
}

// NewCollection creates a collection query source.
func NewCollection[T domain.Record[T]](reg *Registry, store ports.DataStore, cfg CollectionConfig) *Collection[T] {
	return &Collection[T]{
		cfg:   cfg,
		reg:   reg,
		table: store.Table(cfg.Table),
	}
}

// Key returns the cache key.
func (q *Collection[T]) Key() string {
	return q.cfg.Key
}

// Table returns the table accessor the source reads.
func (q *Collection[T]) Table() ports.Table {
	return q.table
}

// Acquire opens (or joins) the live subscription and fetches when the
// cache entry is missing or stale. A fetch failure does not fail Acquire;
// it is reported by the handle's Err.
func (q *Collection[T]) Acquire(ctx context.Context) (*Handle[[]T], error) {
	topic := ports.Topic{
		Channel: q.cfg.Table + "_changes",
		Table:   q.cfg.Table,
	}
	if err := q.reg.retain(ctx, q.cfg.Key, topic, q.handleChange); err != nil {
		return nil, err
	}
	h := newHandle(q.reg, q.cfg.Key, q.Current, func(ctx context.Context) error {
		_, err := q.Fetch(ctx)
		return err
	})
	if q.reg.cache.IsStale(q.cfg.Key, q.cfg.StaleTime) {
		_, _ = q.Fetch(ctx)
	}
	return h, nil
}

// Fetch issues the read-all and stores the result in the cache.
// Failures are recorded on the cache entry as a *domain.QueryError.
func (q *Collection[T]) Fetch(ctx context.Context) ([]T, error) {
	v, err := q.reg.fetchOnce(q.cfg.Key, func() (any, error) {
		q.changes.begin()
		rows, err := q.table.List(ctx, q.cfg.Order)
		if err == nil {
			var records []T
			records, err = DecodeRows[T](rows)
			if err == nil {
				q.changes.commit(func(pending []domain.Change[T]) {
					for _, ev := range pending {
						records = ApplyChange(records, ev)
					}
					q.reg.cache.Set(q.cfg.Key, records)
				})
				return records, nil
			}
		}
		q.changes.abort()
		qerr := &domain.QueryError{Key: q.cfg.Key, Err: err}
		q.reg.cache.SetError(q.cfg.Key, qerr)
		q.reg.logger.Error("fetch failed", ports.String("key", q.cfg.Key), ports.Err(err))
		return nil, qerr
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]T)), nil
}

// Current returns a copy of the cached collection, or an empty slice.
func (q *Collection[T]) Current() []T {
	records, ok := cache.Value[[]T](q.reg.cache, q.cfg.Key)
	if !ok {
		return []T{}
	}
	return slices.Clone(records)
}

func (q *Collection[T]) handleChange(ch ports.Change) {
	ev, err := DecodeChange[T](ch)
	if err != nil {
		q.reg.logger.Warn("dropping undecodable change",
			ports.String("key", q.cfg.Key),
			ports.Err(err))
		return
	}
	// Without an entry the change only matters to an in-flight fetch,
	// which replays it.
	q.changes.deliver(ev, func(ev domain.Change[T]) {
		cache.MutateExisting(q.reg.cache, q.cfg.Key, func(old []T) []T {
			return ApplyChange(old, ev)
		})
	})
}
