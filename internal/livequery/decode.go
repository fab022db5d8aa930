package livequery

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/ports"
)

// DecodeRows decodes raw rows into records.
func DecodeRows[T any](rows []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, raw := range rows {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeRow decodes a single raw row.
func DecodeRow[T any](raw json.RawMessage) (T, error) {
	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("decode row: %w", err)
	}
	return rec, nil
}

// DecodeChange decodes a raw feed change. Empty or null payloads decode to
// the zero record.
func DecodeChange[T any](ch ports.Change) (domain.Change[T], error) {
	ev := domain.Change[T]{Type: ch.Type}
	if hasPayload(ch.New) {
		if err := json.Unmarshal(ch.New, &ev.New); err != nil {
			return ev, fmt.Errorf("decode new record: %w", err)
		}
	}
	if hasPayload(ch.Old) {
		if err := json.Unmarshal(ch.Old, &ev.Old); err != nil {
			return ev, fmt.Errorf("decode old record: %w", err)
		}
	}
	return ev, nil
}

func hasPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
