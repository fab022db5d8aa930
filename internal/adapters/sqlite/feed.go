package sqlite

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/ports"
)

// feed fans committed changes out to in-process subscribers.
type feed struct {
	mu     sync.Mutex
	subs   map[int]*localSub
	nextID int
}

type localSub struct {
	f       *feed
	id      int
	table   string
	rowID   domain.ID
	handler ports.ChangeHandler
}

func newFeed() *feed {
	return &feed{subs: make(map[int]*localSub)}
}

// parseFilter accepts "" or "id=eq.N".
func parseFilter(filter string) (domain.ID, error) {
	if filter == "" {
		return 0, nil
	}
	v, ok := strings.CutPrefix(filter, "id=eq.")
	if !ok {
		return 0, fmt.Errorf("unsupported filter %q", filter)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unsupported filter %q: %w", filter, err)
	}
	return domain.ID(n), nil
}

func (f *feed) subscribe(topic ports.Topic, handler ports.ChangeHandler) (ports.Subscription, error) {
	rowID, err := parseFilter(topic.Filter)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := &localSub{f: f, id: f.nextID, table: topic.Table, rowID: rowID, handler: handler}
	f.subs[s.id] = s
	return s, nil
}

func (s *localSub) Unsubscribe() error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	delete(s.f.subs, s.id)
	return nil
}

func (s *localSub) matches(ch ports.Change) bool {
	if s.table != ch.Table {
		return false
	}
	if s.rowID == 0 {
		return true
	}
	raw := ch.New
	if ch.Type == domain.ChangeDelete {
		raw = ch.Old
	}
	var row struct {
		ID domain.ID `json:"id"`
	}
	return json.Unmarshal(raw, &row) == nil && row.ID == s.rowID
}

// publish delivers ch to matching subscribers in subscription order.
func (f *feed) publish(ch ports.Change) {
	f.mu.Lock()
	ids := make([]int, 0, len(f.subs))
	for id, s := range f.subs {
		if s.matches(ch) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	handlers := make([]ports.ChangeHandler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, f.subs[id].handler)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(ch)
	}
}
