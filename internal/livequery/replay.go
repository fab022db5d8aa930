package livequery

import "sync"

// replayLog serializes feed changes against fetches for one key. Changes
// delivered while a fetch is open are queued and replayed onto the fetched
// value before it is stored, so a change that lands between the server's
// answer and the cache write is not lost.
type replayLog[E any] struct {
	mu      sync.Mutex
	open    bool
	pending []E
}

// begin opens a fetch.
func (l *replayLog[E]) begin() {
	l.mu.Lock()
	l.open, l.pending = true, nil
	l.mu.Unlock()
}

// deliver applies ev, queuing it when a fetch is open.
func (l *replayLog[E]) deliver(ev E, apply func(E)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open {
		l.pending = append(l.pending, ev)
	}
	apply(ev)
}

// commit closes the fetch and hands the queued changes to store, which
// runs before any later change is applied.
func (l *replayLog[E]) commit(store func(pending []E)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pending := l.pending
	l.open, l.pending = false, nil
	store(pending)
}

// abort closes a failed fetch.
func (l *replayLog[E]) abort() {
	l.mu.Lock()
	l.open, l.pending = false, nil
	l.mu.Unlock()
}
