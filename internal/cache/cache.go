// Package cache is the client-side read cache shared by queries and
// mutations. It holds one entry per entity collection, keyed by a stable
// name, and notifies listeners whenever an entry changes.
//
// Values stored in the cache are treated as immutable: writers always store
// a fresh value (a new slice for collections). That is what lets a mutation
// keep the previous value as its rollback snapshot.
package cache

import (
	"sort"
	"sync"
	"time"
)

// Entry is the state of a single key.
type Entry struct {
	// Value is the cached value. Nil when only an error has been recorded.
	Value any

	// HasValue reports whether Value was ever set.
	HasValue bool

	// UpdatedAt is when Value was last written.
	UpdatedAt time.Time

	// Err is the last fetch error, cleared by the next successful Set.
	Err error
}

// Snapshot is a verbatim copy of an entry used to roll a key back.
type Snapshot struct {
	key     string
	entry   Entry
	present bool
}

// Key returns the key the snapshot was taken from.
func (s Snapshot) Key() string { return s.key }

// Listener is called after an entry changes, outside the cache lock.
type Listener func(key string)

// Client is a concurrency-safe keyed cache with change listeners.
type Client struct {
	mu        sync.Mutex
	entries   map[string]Entry
	listeners map[string]map[int]Listener
	nextID    int
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Client {
	c := &Client{
		entries:   make(map[string]Entry),
		listeners: make(map[string]map[int]Listener),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key.
func (c *Client) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.HasValue {
		return nil, false
	}
	return e.Value, true
}

// Entry returns the full entry state for key.
func (c *Client) Entry(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Set stores value under key and clears any recorded error.
func (c *Client) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = Entry{Value: value, HasValue: true, UpdatedAt: c.now()}
	c.mu.Unlock()
	c.notify(key)
}

// Update atomically replaces the value for key with fn(old, ok).
// fn runs under the cache lock and must not call back into the cache.
func (c *Client) Update(key string, fn func(old any, ok bool) any) {
	c.mu.Lock()
	e, ok := c.entries[key]
	next := fn(e.Value, ok && e.HasValue)
	c.entries[key] = Entry{Value: next, HasValue: true, UpdatedAt: c.now()}
	c.mu.Unlock()
	c.notify(key)
}

// UpdateExisting is like Update but only runs when key already holds a value.
// It reports whether fn ran.
func (c *Client) UpdateExisting(key string, fn func(old any) any) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || !e.HasValue {
		c.mu.Unlock()
		return false
	}
	e.Value = fn(e.Value)
	e.UpdatedAt = c.now()
	c.entries[key] = e
	c.mu.Unlock()
	c.notify(key)
	return true
}

// SetError records a fetch failure for key, keeping any previous value.
func (c *Client) SetError(key string, err error) {
	c.mu.Lock()
	e := c.entries[key]
	e.Err = err
	c.entries[key] = e
	c.mu.Unlock()
	c.notify(key)
}

// Remove evicts key. Listeners stay registered.
func (c *Client) Remove(key string) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	if ok {
		c.notify(key)
	}
}

// Snapshot captures the current entry for key, including its absence.
func (c *Client) Snapshot(key string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return Snapshot{key: key, entry: e, present: ok}
}

// Restore puts a snapshot back verbatim. A snapshot of an absent key
// removes the key.
func (c *Client) Restore(s Snapshot) {
	c.mu.Lock()
	if s.present {
		c.entries[s.key] = s.entry
	} else {
		delete(c.entries, s.key)
	}
	c.mu.Unlock()
	c.notify(s.key)
}

// IsStale reports whether key has no value or its value is older than maxAge.
// A zero maxAge means values never go stale.
func (c *Client) IsStale(key string, maxAge time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.HasValue {
		return true
	}
	if maxAge <= 0 {
		return false
	}
	return c.now().Sub(e.UpdatedAt) > maxAge
}

// Subscribe registers fn for changes to key and returns a function that
// removes the registration.
func (c *Client) Subscribe(key string, fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	if c.listeners[key] == nil {
		c.listeners[key] = make(map[int]Listener)
	}
	c.listeners[key][id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners[key], id)
			if len(c.listeners[key]) == 0 {
				delete(c.listeners, key)
			}
			c.mu.Unlock()
		})
	}
}

// Keys returns the cached keys in sorted order.
func (c *Client) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Client) notify(key string) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.listeners[key]))
	for id := range c.listeners[key] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[key][id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}
