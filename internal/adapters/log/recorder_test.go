package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/folio/internal/ports"
)

func TestRecorder_WithSharesEntries(t *testing.T) {
	r := NewRecorder()
	scoped := r.With(ports.Component("realtime"))

	r.Info("started")
	scoped.Warn("reconnecting", ports.Int("attempt", 1), ports.Err(errors.New("eof")))

	got := r.Entries()
	require.Len(t, got, 2)
	require.Equal(t, Entry{Level: LevelInfo, Msg: "started", Fields: map[string]any{}}, got[0])

	e, ok := r.Find(LevelWarn, "reconnecting")
	require.True(t, ok)
	require.Equal(t, "realtime", e.Fields["component"])
	require.Equal(t, 1, e.Fields["attempt"])
	require.EqualError(t, e.Fields["error"].(error), "eof")

	_, ok = r.Find(LevelError, "reconnecting")
	require.False(t, ok)
}

func TestNewNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	l.Error("dropped")
	require.NotNil(t, l.With(ports.Component("x")))
}
