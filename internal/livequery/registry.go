package livequery

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/bft-labs/folio/internal/cache"
	"github.com/bft-labs/folio/internal/ports"
)

// Registry owns the feed subscriptions for a cache. Sources built on the
// same registry share one subscription per cache key.
type Registry struct {
	cache  *cache.Client
	feed   ports.Feed
	logger ports.Logger

	mu      sync.Mutex
	live    map[string]*liveKey
	fetches singleflight.Group
}

type liveKey struct {
	refs int
	sub  ports.Subscription

	// ready is closed once the first retain has subscribed; err is its result.
	ready chan struct{}
	err   error
}

// NewRegistry creates a registry. A nil feed disables live updates; queries
// then only refresh on fetch.
func NewRegistry(c *cache.Client, feed ports.Feed, logger ports.Logger) *Registry {
	return &Registry{
		cache:  c,
		feed:   feed,
		logger: logger.With(ports.Component("livequery")),
		live:   make(map[string]*liveKey),
	}
}

// Cache returns the cache the registry writes to.
func (r *Registry) Cache() *cache.Client {
	return r.cache
}

// Refs returns how many handles currently hold key.
func (r *Registry) Refs(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lk, ok := r.live[key]; ok {
		return lk.refs
	}
	return 0
}

// retain adds a reference to key, opening the subscription on the first one.
// The feed is subscribed outside the registry lock; concurrent retains of the
// same key wait for that subscription, other keys are not held up.
func (r *Registry) retain(ctx context.Context, key string, topic ports.Topic, handler ports.ChangeHandler) error {
	r.mu.Lock()
	if lk, ok := r.live[key]; ok {
		lk.refs++
		r.mu.Unlock()
		select {
		case <-lk.ready:
			return lk.err
		case <-ctx.Done():
			r.drop(key, lk)
			return ctx.Err()
		}
	}
	lk := &liveKey{refs: 1, ready: make(chan struct{})}
	r.live[key] = lk
	r.mu.Unlock()

	var sub ports.Subscription
	var err error
	if r.feed != nil {
		sub, err = r.feed.Subscribe(ctx, topic, handler)
	}

	r.mu.Lock()
	if err != nil {
		lk.err = fmt.Errorf("subscribe %s: %w", topic.Table, err)
		delete(r.live, key)
	} else {
		lk.sub = sub
	}
	close(lk.ready)
	r.mu.Unlock()

	if err != nil {
		return lk.err
	}
	if sub != nil {
		r.logger.Info("subscription opened",
			ports.String("key", key),
			ports.String("channel", topic.Channel))
	}
	return nil
}

// release drops a reference to key. The last release closes the
// subscription and evicts the cache entry.
func (r *Registry) release(key string) {
	r.drop(key, nil)
}

// drop releases a reference to key, but only to the entry want when it is
// not nil.
func (r *Registry) drop(key string, want *liveKey) {
	r.mu.Lock()
	lk, ok := r.live[key]
	if !ok || (want != nil && lk != want) {
		r.mu.Unlock()
		return
	}
	lk.refs--
	if lk.refs > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.live, key)
	r.mu.Unlock()

	if lk.sub != nil {
		if err := lk.sub.Unsubscribe(); err != nil {
			r.logger.Warn("unsubscribe failed", ports.String("key", key), ports.Err(err))
		} else {
			r.logger.Info("subscription closed", ports.String("key", key))
		}
	}
	r.cache.Remove(key)
}

// fetchOnce runs fn for key, sharing the call with concurrent fetchers.
func (r *Registry) fetchOnce(key string, fn func() (any, error)) (any, error) {
	v, err, _ := r.fetches.Do(key, fn)
	return v, err
}
