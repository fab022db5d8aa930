// Package sqlite provides the local data store: one SQLite table per entity
// holding a JSON document per row, plus an in-process change feed.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bft-labs/folio/internal/adapters/sqlite/migrations"
	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/ports"
)

// Store persists rows in SQLite. It implements ports.DataStore and
// ports.Feed; every committed write is published to subscribers.
type Store struct {
	db     *sql.DB
	logger ports.Logger
	feed   *feed

	// writeMu orders commits with their change delivery.
	writeMu sync.Mutex
	now     func() time.Time
}

// Open opens a SQLite store and applies embedded migrations.
func Open(ctx context.Context, path string, logger ports.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger = logger.With(ports.Component("sqlite"))
	logger.Info("sqlite store opened", ports.String("path", path))
	return &Store{db: db, logger: logger, feed: newFeed(), now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Table implements ports.DataStore.
func (s *Store) Table(name string) ports.Table {
	return &table{s: s, name: name}
}

// Subscribe implements ports.Feed.
func (s *Store) Subscribe(ctx context.Context, topic ports.Topic, handler ports.ChangeHandler) (ports.Subscription, error) {
	return s.feed.subscribe(topic, handler)
}

type table struct {
	s    *Store
	name string
}

func (t *table) check() error {
	if !slices.Contains(domain.Tables, t.name) {
		return fmt.Errorf("unknown table %q", t.name)
	}
	return nil
}

// orderClause maps an Order onto a whitelisted column.
func orderClause(o domain.Order) (string, error) {
	if o.IsZero() {
		return " ORDER BY id ASC", nil
	}
	var col string
	switch o.Column {
	case "id", "created_at":
		col = o.Column
	default:
		return "", fmt.Errorf("unsupported order column %q", o.Column)
	}
	dir := "DESC"
	if o.Ascending {
		dir = "ASC"
	}
	return " ORDER BY " + col + " " + dir + ", id " + dir, nil
}

func (t *table) List(ctx context.Context, order domain.Order) ([]json.RawMessage, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	clause, err := orderClause(order)
	if err != nil {
		return nil, err
	}
	rows, err := t.s.db.QueryContext(ctx, "SELECT id, data FROM "+t.name+clause)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		raw, err := withID(data, domain.ID(id))
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	if out == nil {
		out = []json.RawMessage{}
	}
	return out, nil
}

func (t *table) Get(ctx context.Context, id domain.ID) (json.RawMessage, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.get(ctx, t.s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (t *table) get(ctx context.Context, q queryer, id domain.ID) (json.RawMessage, error) {
	var data string
	err := q.QueryRowContext(ctx, "SELECT data FROM "+t.name+" WHERE id = ?", int64(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%d: %w", t.name, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%d: %w", t.name, id, err)
	}
	return withID(data, id)
}

func (t *table) Insert(ctx context.Context, row any) (json.RawMessage, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	fields, err := toFields(row)
	if err != nil {
		return nil, err
	}
	delete(fields, "id")
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	t.s.writeMu.Lock()
	defer t.s.writeMu.Unlock()

	res, err := t.s.db.ExecContext(ctx,
		"INSERT INTO "+t.name+" (data, created_at) VALUES (?, ?)",
		string(data), t.s.createdAt(fields))
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.name, err)
	}
	raw, err := withID(string(data), domain.ID(id))
	if err != nil {
		return nil, err
	}
	t.s.feed.publish(ports.Change{Table: t.name, Type: domain.ChangeInsert, New: raw, Old: json.RawMessage(`{}`)})
	return raw, nil
}

func (t *table) Update(ctx context.Context, id domain.ID, patch domain.Patch) (json.RawMessage, error) {
	if err := t.check(); err != nil {
		return nil, err
	}

	t.s.writeMu.Lock()
	defer t.s.writeMu.Unlock()

	tx, err := t.s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update %s/%d: %w", t.name, id, err)
	}
	defer tx.Rollback()

	old, err := t.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(old, &fields); err != nil {
		return nil, fmt.Errorf("decode %s/%d: %w", t.name, id, err)
	}
	for k, v := range patch {
		fields[k] = v
	}
	delete(fields, "id")
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE "+t.name+" SET data = ? WHERE id = ?", string(data), int64(id)); err != nil {
		return nil, fmt.Errorf("update %s/%d: %w", t.name, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update %s/%d: %w", t.name, id, err)
	}

	raw, err := withID(string(data), id)
	if err != nil {
		return nil, err
	}
	t.s.feed.publish(ports.Change{Table: t.name, Type: domain.ChangeUpdate, New: raw, Old: old})
	return raw, nil
}

func (t *table) Delete(ctx context.Context, id domain.ID) error {
	if err := t.check(); err != nil {
		return err
	}

	t.s.writeMu.Lock()
	defer t.s.writeMu.Unlock()

	res, err := t.s.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id = ?", int64(id))
	if err != nil {
		return fmt.Errorf("delete %s/%d: %w", t.name, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	old, _ := json.Marshal(map[string]any{"id": int64(id)})
	t.s.feed.publish(ports.Change{Table: t.name, Type: domain.ChangeDelete, New: json.RawMessage(`{}`), Old: old})
	return nil
}

// createdAt takes the row's own created_at when it carries one.
func (s *Store) createdAt(fields map[string]any) int64 {
	if v, ok := fields["created_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil && !ts.IsZero() {
			return ts.UTC().UnixMilli()
		}
	}
	return s.now().UTC().UnixMilli()
}

func toFields(row any) (map[string]any, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal row: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("row must be a JSON object: %w", err)
	}
	return fields, nil
}

func withID(data string, id domain.ID) (json.RawMessage, error) {
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("decode row %d: %w", id, err)
	}
	fields["id"] = int64(id)
	return json.Marshal(fields)
}
