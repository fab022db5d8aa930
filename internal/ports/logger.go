package ports

import (
	"time"

	"github.com/bft-labs/folio/pkg/log"
)

// Logger provides structured logging capabilities.
type Logger = log.Logger

// Field represents a key-value pair for structured logging.
type Field = log.Field

// Component tags messages with the emitting subsystem.
func Component(name string) Field { return log.Component(name) }

// String creates a string field.
func String(key, value string) Field { return log.String(key, value) }

// Int creates an int field.
func Int(key string, value int) Field { return log.Int(key, value) }

// Int64 creates an int64 field.
func Int64(key string, value int64) Field { return log.Int64(key, value) }

// Bool creates a bool field.
func Bool(key string, value bool) Field { return log.Bool(key, value) }

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field { return log.Duration(key, value) }

// Err creates an error field with key "error".
func Err(err error) Field { return log.Err(err) }

// Any creates a field with any value.
func Any(key string, value any) Field { return log.Any(key, value) }
