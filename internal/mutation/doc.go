// Package mutation applies admin writes optimistically.
//
// Every write snapshots the cache entry, applies the expected result to the
// cache straight away, and then issues the remote call. A failed call puts
// the snapshot back verbatim and returns an error wrapping
// domain.ErrWriteFailed. A successful call replaces the speculative value
// with the server-confirmed record.
//
// Speculative writes only touch entries that already hold a value; an entry
// nobody has fetched has nothing to patch.
package mutation
