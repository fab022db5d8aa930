package storefakes

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/ports"
)

// Feed is an in-memory ports.Feed. Emit delivers synchronously.
type Feed struct {
	mu     sync.Mutex
	subs   map[int]*subscription
	nextID int
	opened int

	// Err, when set, is returned by Subscribe.
	Err error
}

// NewFeed creates a feed with no subscribers.
func NewFeed() *Feed {
	return &Feed{subs: make(map[int]*subscription)}
}

type subscription struct {
	feed    *Feed
	id      int
	topic   ports.Topic
	handler ports.ChangeHandler
}

func (f *Feed) Subscribe(ctx context.Context, topic ports.Topic, handler ports.ChangeHandler) (ports.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.nextID++
	f.opened++
	s := &subscription{feed: f, id: f.nextID, topic: topic, handler: handler}
	f.subs[s.id] = s
	return s, nil
}

func (s *subscription) Unsubscribe() error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	delete(s.feed.subs, s.id)
	return nil
}

// Active returns how many subscriptions for table are open.
func (f *Feed) Active(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if s.topic.Table == table {
			n++
		}
	}
	return n
}

// Opened returns how many subscriptions were ever opened.
func (f *Feed) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

// Topics returns the topics of open subscriptions.
func (f *Feed) Topics() []ports.Topic {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.Topic, 0, len(f.subs))
	for _, s := range f.subs {
		out = append(out, s.topic)
	}
	return out
}

// Emit delivers a change to every subscriber of table.
// newRow and oldRow are marshaled to JSON; nil sends no payload.
func (f *Feed) Emit(table string, typ domain.ChangeType, newRow, oldRow any) {
	ch := ports.Change{Table: table, Type: typ, New: marshalOrNil(newRow), Old: marshalOrNil(oldRow)}
	f.mu.Lock()
	var handlers []ports.ChangeHandler
	for _, s := range f.subs {
		if s.topic.Table == table {
			handlers = append(handlers, s.handler)
		}
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(ch)
	}
}

func marshalOrNil(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
