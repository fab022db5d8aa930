package ports

import (
	"context"
	"encoding/json"

	"github.com/bft-labs/folio/internal/domain"
)

// DataStore hands out table accessors for the remote relational store.
type DataStore interface {
	// Table returns the accessor for the named table.
	Table(name string) Table
}

// Table performs CRUD against one table. Rows cross the port as raw JSON
// objects so adapters stay independent of the entity types.
type Table interface {
	// List reads every row, sorted by order when it is set.
	List(ctx context.Context, order domain.Order) ([]json.RawMessage, error)

	// Get reads one row. Returns domain.ErrNotFound when it does not exist.
	Get(ctx context.Context, id domain.ID) (json.RawMessage, error)

	// Insert writes a new row and returns it as stored (with its id).
	Insert(ctx context.Context, row any) (json.RawMessage, error)

	// Update merges patch into the row and returns it as stored.
	// Returns domain.ErrNotFound when the row does not exist.
	Update(ctx context.Context, id domain.ID, patch domain.Patch) (json.RawMessage, error)

	// Delete removes the row. Deleting a missing row is not an error.
	Delete(ctx context.Context, id domain.ID) error
}
