package livequery

import (
	"context"
	"sync"

	"github.com/bft-labs/folio/internal/cache"
)

// Handle is a scoped reference to a live query. It must be released.
type Handle[V any] struct {
	key     string
	cache   *cache.Client
	read    func() V
	refetch func(ctx context.Context) error
	release func()

	updates chan struct{}
	unwatch func()
	once    sync.Once
}

func newHandle[V any](reg *Registry, key string, read func() V, refetch func(context.Context) error) *Handle[V] {
	h := &Handle[V]{
		key:     key,
		cache:   reg.cache,
		read:    read,
		refetch: refetch,
		updates: make(chan struct{}, 1),
	}
	h.unwatch = reg.cache.Subscribe(key, func(string) {
		select {
		case h.updates <- struct{}{}:
		default:
		}
	})
	h.release = func() { reg.release(key) }
	return h
}

// Key returns the cache key the handle reads.
func (h *Handle[V]) Key() string {
	return h.key
}

// Data returns the cached value, or the placeholder before the first fetch.
func (h *Handle[V]) Data() V {
	return h.read()
}

// Loaded reports whether the cache holds a fetched or patched value.
func (h *Handle[V]) Loaded() bool {
	_, ok := h.cache.Get(h.key)
	return ok
}

// Err returns the last query error, or nil.
func (h *Handle[V]) Err() error {
	e, ok := h.cache.Entry(h.key)
	if !ok {
		return nil
	}
	return e.Err
}

// Updates is signalled after every change to the cache entry.
// Bursts of changes coalesce into one signal.
func (h *Handle[V]) Updates() <-chan struct{} {
	return h.updates
}

// Refetch re-issues the read-all and returns its error.
func (h *Handle[V]) Refetch(ctx context.Context) error {
	return h.refetch(ctx)
}

// Release drops the handle's reference. It is safe to call more than once.
func (h *Handle[V]) Release() {
	h.once.Do(func() {
		h.unwatch()
		h.release()
	})
}
