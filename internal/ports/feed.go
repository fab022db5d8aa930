package ports

import (
	"context"
	"encoding/json"

	"github.com/bft-labs/folio/internal/domain"
)

// Topic selects the row changes a subscription receives.
type Topic struct {
	// Channel is a client-chosen channel name, unique per subscription.
	Channel string

	// Table is the table whose changes are delivered.
	Table string

	// Filter optionally narrows delivery, in "column=eq.value" form.
	Filter string
}

// Change is a raw row change as delivered by a feed.
type Change struct {
	Table string
	Type  domain.ChangeType
	New   json.RawMessage
	Old   json.RawMessage
}

// ChangeHandler receives changes in delivery order.
// Handlers are called from the feed's delivery goroutine and must not block.
type ChangeHandler func(Change)

// Feed opens row-change subscriptions.
type Feed interface {
	// Subscribe starts delivering changes for topic to handler.
	// The subscription lives until Unsubscribe is called.
	Subscribe(ctx context.Context, topic Topic, handler ChangeHandler) (Subscription, error)
}

// Subscription is a live feed registration.
type Subscription interface {
	// Unsubscribe stops delivery. It is safe to call more than once.
	Unsubscribe() error
}
