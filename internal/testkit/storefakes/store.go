// Package storefakes provides in-memory fakes of the data store, change feed
// and object storage ports for tests.
package storefakes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/ports"
)

// Op names a table operation for failure injection and call counting.
type Op string

const (
	OpList   Op = "list"
	OpGet    Op = "get"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Store is an in-memory ports.DataStore. Rows are JSON objects keyed by id.
type Store struct {
	mu     sync.Mutex
	rows   map[string]map[domain.ID]map[string]any
	nextID map[string]domain.ID
	fail   map[string]error
	calls  map[string]int

	// Gate, when set, is received from before every operation returns.
	// Tests use it to observe the cache while a write is in flight.
	Gate chan struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		rows:   make(map[string]map[domain.ID]map[string]any),
		nextID: make(map[string]domain.ID),
		fail:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// Seed inserts rows with explicit ids.
func (s *Store) Seed(table string, rows ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		m := toMap(r)
		id := idOf(m)
		s.table(table)[id] = m
		if id >= s.nextID[table] {
			s.nextID[table] = id
		}
	}
}

// Fail makes every subsequent op on table return err until cleared with nil.
func (s *Store) Fail(table string, op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, key(table, op))
		return
	}
	s.fail[key(table, op)] = err
}

// Calls returns how many times op ran on table.
func (s *Store) Calls(table string, op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key(table, op)]
}

// Table implements ports.DataStore.
func (s *Store) Table(name string) ports.Table {
	return &table{store: s, name: name}
}

func (s *Store) table(name string) map[domain.ID]map[string]any {
	t, ok := s.rows[name]
	if !ok {
		t = make(map[domain.ID]map[string]any)
		s.rows[name] = t
	}
	return t
}

func (s *Store) begin(table string, op Op) error {
	s.mu.Lock()
	s.calls[key(table, op)]++
	err := s.fail[key(table, op)]
	gate := s.Gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

type table struct {
	store *Store
	name  string
}

func (t *table) List(ctx context.Context, order domain.Order) ([]json.RawMessage, error) {
	if err := t.store.begin(t.name, OpList); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	rows := make([]map[string]any, 0, len(t.store.rows[t.name]))
	for _, r := range t.store.rows[t.name] {
		rows = append(rows, r)
	}
	col := order.Column
	if col == "" {
		col = "id"
	}
	less := func(a, b map[string]any) bool {
		if col == "id" {
			return idOf(a) < idOf(b)
		}
		return fmt.Sprint(a[col]) < fmt.Sprint(b[col])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if order.Column != "" && !order.Ascending {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, mustJSON(r))
	}
	return out, nil
}

func (t *table) Get(ctx context.Context, id domain.ID) (json.RawMessage, error) {
	if err := t.store.begin(t.name, OpGet); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	r, ok := t.store.rows[t.name][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return mustJSON(r), nil
}

func (t *table) Insert(ctx context.Context, row any) (json.RawMessage, error) {
	if err := t.store.begin(t.name, OpInsert); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	m := toMap(row)
	t.store.nextID[t.name]++
	id := t.store.nextID[t.name]
	m["id"] = int64(id)
	t.store.table(t.name)[id] = m
	return mustJSON(m), nil
}

func (t *table) Update(ctx context.Context, id domain.ID, patch domain.Patch) (json.RawMessage, error) {
	if err := t.store.begin(t.name, OpUpdate); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	r, ok := t.store.rows[t.name][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	next := make(map[string]any, len(r)+len(patch))
	for k, v := range r {
		next[k] = v
	}
	for k, v := range patch {
		if k != "id" {
			next[k] = v
		}
	}
	t.store.rows[t.name][id] = next
	return mustJSON(next), nil
}

func (t *table) Delete(ctx context.Context, id domain.ID) error {
	if err := t.store.begin(t.name, OpDelete); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	delete(t.store.rows[t.name], id)
	return nil
}

// ObjectStore is an in-memory ports.ObjectStore.
type ObjectStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
	Err     error
	Uploads int
}

// NewObjectStore creates an empty object store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{Objects: map[string][]byte{}, Types: map[string]string{}}
}

func (o *ObjectStore) Upload(ctx context.Context, bucket, name string, body io.Reader, opts ports.UploadOptions) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Uploads++
	if o.Err != nil {
		return "", o.Err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	k := bucket + "/" + name
	if _, exists := o.Objects[k]; exists && !opts.Upsert {
		return "", fmt.Errorf("object %s already exists", k)
	}
	o.Objects[k] = data
	o.Types[k] = opts.ContentType
	return name, nil
}

func (o *ObjectStore) PublicURL(bucket, path string) string {
	return "https://cdn.test/" + bucket + "/" + path
}

func key(table string, op Op) string { return table + ":" + string(op) }

func toMap(v any) map[string]any {
	m := map[string]any{}
	if err := json.Unmarshal(mustJSON(v), &m); err != nil {
		panic(err)
	}
	return m
}

func idOf(m map[string]any) domain.ID {
	switch v := m["id"].(type) {
	case float64:
		return domain.ID(v)
	case int64:
		return domain.ID(v)
	case int:
		return domain.ID(v)
	}
	return 0
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
