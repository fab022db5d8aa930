package domain

import "strings"

// ChangeType is the kind of row change delivered by the change feed.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ParseChangeType normalizes the event type reported by a feed.
// Unknown types return false.
func ParseChangeType(s string) (ChangeType, bool) {
	switch ChangeType(strings.ToUpper(strings.TrimSpace(s))) {
	case ChangeInsert:
		return ChangeInsert, true
	case ChangeUpdate:
		return ChangeUpdate, true
	case ChangeDelete:
		return ChangeDelete, true
	}
	return "", false
}

// Change is a decoded row change for a collection of T.
// Old carries at least the identifier for updates and deletes.
type Change[T any] struct {
	Type ChangeType
	New  T
	Old  T
}
