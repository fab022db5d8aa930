package domain

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Patch is a partial update keyed by JSON column name.
type Patch map[string]any

// Has reports whether the patch names the column.
func (p Patch) Has(column string) bool {
	_, ok := p[column]
	return ok
}

// String returns the column value as a string and whether it was one.
func (p Patch) String(column string) (string, bool) {
	v, ok := p[column]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Without returns a copy of the patch without the named columns.
func (p Patch) Without(columns ...string) Patch {
	out := maps.Clone(p)
	for _, c := range columns {
		delete(out, c)
	}
	return out
}

// Merge overlays the patch onto rec and returns the merged copy.
// The id column is never overwritten.
func Merge[T any](rec T, p Patch) (T, error) {
	var out T
	raw, err := json.Marshal(rec)
	if err != nil {
		return out, fmt.Errorf("marshal record: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out, fmt.Errorf("unmarshal record: %w", err)
	}
	id, hasID := fields["id"]
	for k, v := range p {
		fields[k] = v
	}
	if hasID {
		fields["id"] = id
	} else {
		delete(fields, "id")
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("marshal merged: %w", err)
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, fmt.Errorf("apply patch: %w", err)
	}
	return out, nil
}
