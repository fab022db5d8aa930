package livequery

import (
	"slices"

	"github.com/bft-labs/folio/internal/domain"
)

// ApplyChange returns records with ev applied. The input slice is never
// modified; a new slice is returned whenever the result differs.
func ApplyChange[T domain.Record[T]](records []T, ev domain.Change[T]) []T {
	switch ev.Type {
	case domain.ChangeInsert:
		if i := domain.IndexOf(records, ev.New.RecordID()); i >= 0 {
			return replaceAt(records, i, ev.New)
		}
		out := make([]T, 0, len(records)+1)
		out = append(out, ev.New)
		return append(out, records...)

	case domain.ChangeUpdate:
		i := domain.IndexOf(records, ev.New.RecordID())
		if i < 0 {
			return records
		}
		return replaceAt(records, i, ev.New)

	case domain.ChangeDelete:
		id := ev.Old.RecordID()
		if id == 0 {
			id = ev.New.RecordID()
		}
		i := domain.IndexOf(records, id)
		if i < 0 {
			return records
		}
		return slices.Delete(slices.Clone(records), i, i+1)
	}
	return records
}

func replaceAt[T any](records []T, i int, rec T) []T {
	out := slices.Clone(records)
	out[i] = rec
	return out
}
