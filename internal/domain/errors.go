package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the folio domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("folio: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("folio: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("folio: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("folio: invalid configuration")

	// ErrNotFound is returned when a record does not exist in the data store.
	ErrNotFound = errors.New("folio: record not found")

	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("folio: validation failed")

	// ErrUnsupportedType is returned when an upload's declared content type
	// does not match what the upload kind accepts.
	ErrUnsupportedType = errors.New("folio: unsupported file type")

	// ErrWriteFailed is wrapped around the cause of a remote write failure
	// after the cache has been rolled back.
	ErrWriteFailed = errors.New("folio: remote write failed")

	// ErrUnauthorized is returned for bad credentials or a missing admin token.
	ErrUnauthorized = errors.New("folio: unauthorized")

	// ErrUploadsDisabled is returned when no object store backs uploads.
	ErrUploadsDisabled = errors.New("folio: uploads are not configured")
)

// ValidationError reports a client-side validation failure on a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// QueryError is the failure of a read-all against the data store, reported
// on the query handle for the given cache key.
type QueryError struct {
	Key string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Key, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// RemoteError is an error response returned by the data store or object storage.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote %d: %s", e.Status, e.Message)
}
