package livequery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/folio/internal/cache"
	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/ports"
)

// SingletonConfig describes a query over one well-known row.
type SingletonConfig[T any] struct {
	Key       string
	Table     string
	ID        domain.ID
	StaleTime time.Duration

	// Placeholder is served while the row is missing.
	Placeholder T
}

// Singleton is the query source for a single row of T.
type Singleton[T domain.Record[T]] struct {
	cfg     SingletonConfig[T]
	reg     *Registry
	table   ports.Table
	changes replayLog[domain.Change[T]]
}

// NewSingleton creates a singleton query source.
func NewSingleton[T domain.Record[T]](reg *Registry, store ports.DataStore, cfg SingletonConfig[T]) *Singleton[T] {
	return &Singleton[T]{
		cfg:   cfg,
		reg:   reg,
		table: store.Table(cfg.Table),
	}
}

// Key returns the cache key.
func (q *Singleton[T]) Key() string {
	return q.cfg.Key
}

// Table returns the table accessor the source reads.
func (q *Singleton[T]) Table() ports.Table {
	return q.table
}

// RowID returns the id of the row the source tracks.
func (q *Singleton[T]) RowID() domain.ID {
	return q.cfg.ID
}

// Acquire opens (or joins) the live subscription for the row and fetches
// when the cache entry is missing or stale.
func (q *Singleton[T]) Acquire(ctx context.Context) (*Handle[T], error) {
	topic := ports.Topic{
		Channel: q.cfg.Table + "_changes",
		Table:   q.cfg.Table,
		Filter:  fmt.Sprintf("id=eq.%d", q.cfg.ID),
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

// Fetch reads the row and stores it in the cache. A missing row caches the
// placeholder.
func (q *Singleton[T]) Fetch(ctx context.Context) (T, error) {
	v, err := q.reg.fetchOnce(q.cfg.Key, func() (any, error) {
		q.changes.begin()
		raw, err := q.table.Get(ctx, q.cfg.ID)
		var rec T
		switch {
		case errors.Is(err, domain.ErrNotFound):
			rec, err = q.cfg.Placeholder, nil
		case err == nil:
			rec, err = DecodeRow[T](raw)
		}
		if err == nil {
			q.changes.commit(func(pending []domain.Change[T]) {
				for _, ev := range pending {
					if next, ok := q.apply(ev); ok {
						rec = next
					}
				}
				q.reg.cache.Set(q.cfg.Key, rec)
			})
			return rec, nil
		}
		q.changes.abort()
		qerr := &domain.QueryError{Key: q.cfg.Key, Err: err}
		q.reg.cache.SetError(q.cfg.Key, qerr)
		q.reg.logger.Error("fetch failed", ports.String("key", q.cfg.Key), ports.Err(err))
		return nil, qerr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Current returns the cached row, or the placeholder.
func (q *Singleton[T]) Current() T {
	rec, ok := cache.Value[T](q.reg.cache, q.cfg.Key)
	if !ok {
		return q.cfg.Placeholder
	}
	return rec
}

func (q *Singleton[T]) handleChange(ch ports.Change) {
	ev, err := DecodeChange[T](ch)
	if err != nil {
		q.reg.logger.Warn("dropping undecodable change",
			ports.String("key", q.cfg.Key),
			ports.Err(err))
		return
	}
	q.changes.deliver(ev, func(ev domain.Change[T]) {
		if next, ok := q.apply(ev); ok {
			q.reg.cache.Set(q.cfg.Key, next)
		}
	})
}

// apply returns the row ev leaves behind, or false when ev is for another row.
func (q *Singleton[T]) apply(ev domain.Change[T]) (T, bool) {
	switch ev.Type {
	case domain.ChangeInsert, domain.ChangeUpdate:
		if ev.New.RecordID() == q.cfg.ID {
			return ev.New, true
		}
	case domain.ChangeDelete:
		if id := ev.Old.RecordID(); id == 0 || id == q.cfg.ID {
			return q.cfg.Placeholder, true
		}
	}
	var zero T
	return zero, false
}
