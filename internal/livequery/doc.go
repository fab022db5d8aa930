// Package livequery implements cache-and-subscribe queries.
//
// A query source exists per entity. Acquiring a handle on a source issues
// the initial read-all when the cache entry is missing or stale, and opens
// the one feed subscription for that entity key if it is not already open.
// Row changes from the feed patch the cache entry in place:
//
//   - insert prepends the new record (or replaces it when the id is cached)
//   - update replaces the record with the same id, without re-sorting
//   - delete removes at most one record with the id
//
// Releasing the last handle for a key closes the subscription and evicts the
// cache entry.
//
//	h, err := projects.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//
//	for range h.Updates() {
//	    render(h.Data())
//	}
package livequery
