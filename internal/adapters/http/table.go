package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bft-labs/folio/internal/domain"
)

// Table implements ports.Table over PostgREST.
type Table struct {
	c    *Client
	name string
}

func (t *Table) path() string {
	return restPrefix + url.PathEscape(t.name)
}

func idFilter(id domain.ID) url.Values {
	return url.Values{"id": {fmt.Sprintf("eq.%d", id)}}
}

// List reads every row, sorted by order when it is set.
func (t *Table) List(ctx context.Context, order domain.Order) ([]json.RawMessage, error) {
	q := url.Values{"select": {"*"}}
	if !order.IsZero() {
		dir := "desc"
		if order.Ascending {
			dir = "asc"
		}
		q.Set("order", order.Column+"."+dir)
	}
	data, err := t.c.do(ctx, request{method: http.MethodGet, path: t.path(), query: q})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	return decodeRows(data)
}

// Get reads the row with id.
func (t *Table) Get(ctx context.Context, id domain.ID) (json.RawMessage, error) {
	q := idFilter(id)
	q.Set("select", "*")
	data, err := t.c.do(ctx, request{method: http.MethodGet, path: t.path(), query: q})
	if err != nil {
		return nil, fmt.Errorf("get %s/%d: %w", t.name, id, err)
	}
	return firstRow(data, t.name, id)
}

// Insert writes row and returns the stored representation.
func (t *Table) Insert(ctx context.Context, row any) (json.RawMessage, error) {
	body, err := jsonBody(row)
	if err != nil {
		return nil, fmt.Errorf("marshal %s row: %w", t.name, err)
	}
	data, err := t.c.do(ctx, request{
		method:  http.MethodPost,
		path:    t.path(),
		body:    body,
		headers: writeHeaders,
	})
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.name, err)
	}
	return firstRow(data, t.name, 0)
}

// Update patches the row with id and returns the stored representation.
func (t *Table) Update(ctx context.Context, id domain.ID, patch domain.Patch) (json.RawMessage, error) {
	body, err := jsonBody(patch.Without("id"))
	if err != nil {
		return nil, fmt.Errorf("marshal %s patch: %w", t.name, err)
	}
	data, err := t.c.do(ctx, request{
		method:  http.MethodPatch,
		path:    t.path(),
		query:   idFilter(id),
		body:    body,
		headers: writeHeaders,
	})
	if err != nil {
		return nil, fmt.Errorf("update %s/%d: %w", t.name, id, err)
	}
	return firstRow(data, t.name, id)
}

// Delete removes the row with id.
func (t *Table) Delete(ctx context.Context, id domain.ID) error {
	_, err := t.c.do(ctx, request{method: http.MethodDelete, path: t.path(), query: idFilter(id)})
	if err != nil {
		return fmt.Errorf("delete %s/%d: %w", t.name, id, err)
	}
	return nil
}

var writeHeaders = map[string]string{
	"Content-Type": "application/json",
	"Prefer":       "return=representation",
}

func decodeRows(data []byte) ([]json.RawMessage, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

func firstRow(data []byte, table string, id domain.ID) (json.RawMessage, error) {
	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s/%d: %w", table, id, domain.ErrNotFound)
	}
	return rows[0], nil
}
