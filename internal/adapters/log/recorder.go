// Package log provides logger adapters for tests.
package log

import (
	"sync"

	"github.com/bft-labs/folio/internal/ports"
	pkglog "github.com/bft-labs/folio/pkg/log"
)

// Level names a log level as recorded.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is one recorded message with its fields flattened.
type Entry struct {
	Level  Level
	Msg    string
	Fields map[string]any
}

type entries struct {
	mu   sync.Mutex
	list []Entry
}

// Recorder is a ports.Logger that keeps every message in memory.
// Loggers derived with With share the parent's entries.
type Recorder struct {
	shared *entries
	base   []ports.Field
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{shared: &entries{}}
}

// NewNoopLogger returns a logger that discards everything.
func NewNoopLogger() ports.Logger {
	return pkglog.NewNoopLogger()
}

func (r *Recorder) Debug(msg string, fields ...ports.Field) { r.add(LevelDebug, msg, fields) }
func (r *Recorder) Info(msg string, fields ...ports.Field)  { r.add(LevelInfo, msg, fields) }
func (r *Recorder) Warn(msg string, fields ...ports.Field)  { r.add(LevelWarn, msg, fields) }
func (r *Recorder) Error(msg string, fields ...ports.Field) { r.add(LevelError, msg, fields) }

// With returns a recorder that prefixes fields to every entry.
func (r *Recorder) With(fields ...ports.Field) ports.Logger {
	base := make([]ports.Field, 0, len(r.base)+len(fields))
	base = append(base, r.base...)
	base = append(base, fields...)
	return &Recorder{shared: r.shared, base: base}
}

func (r *Recorder) add(level Level, msg string, fields []ports.Field) {
	m := make(map[string]any, len(r.base)+len(fields))
	for _, f := range r.base {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	r.shared.mu.Lock()
	r.shared.list = append(r.shared.list, Entry{Level: level, Msg: msg, Fields: m})
	r.shared.mu.Unlock()
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	return append([]Entry(nil), r.shared.list...)
}

// Find returns the first entry with the given level and message.
func (r *Recorder) Find(level Level, msg string) (Entry, bool) {
	for _, e := range r.Entries() {
		if e.Level == level && e.Msg == msg {
			return e, true
		}
	}
	return Entry{}, false
}
