package domain

import "strconv"

// ID identifies a row. The data store assigns positive identifiers;
// negative values are reserved for provisional records that only live in
// the cache while a create is in flight.
type ID int64

// Provisional reports whether the identifier belongs to a cache-only record.
func (id ID) Provisional() bool { return id < 0 }

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// Record is implemented by every entity stored in the cache.
// T is the concrete entity type so WithRecordID can return a copy.
type Record[T any] interface {
	// RecordID returns the row identifier.
	RecordID() ID

	// WithRecordID returns a copy of the record carrying id.
	WithRecordID(id ID) T
}

// IndexOf returns the index of the first record with the given id, or -1.
func IndexOf[T Record[T]](records []T, id ID) int {
	for i, r := range records {
		if r.RecordID() == id {
			return i
		}
	}
	return -1
}

// Order describes how a read-all is sorted by the data store.
type Order struct {
	Column    string
	Ascending bool
}

// IsZero reports whether no ordering was requested.
func (o Order) IsZero() bool { return o.Column == "" }
