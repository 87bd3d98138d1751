package store

import (
	"errors"

	"fluxtodo/internal/service"
)

// Rejections raised before any optimistic mutation is applied.
var (
	// ErrNotAuthenticated means no user is signed in.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrBusy means another operation on the same entity is in flight.
	ErrBusy = errors.New("operation already in progress")

	// ErrNotFound means the entity is not in the local collection.
	ErrNotFound = errors.New("not found")

	// ErrPending means the entity is still provisional and unknown to the server.
	ErrPending = errors.New("not yet saved")

	// ErrClosed means the session has been torn down.
	ErrClosed = errors.New("session closed")
)

// ValidationError reports input rejected by a store before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// OpError is the error recorded in a store's error field and returned from
// the failed operation. Its message is what the UI shows; Err keeps the
// underlying cause for callers that special-case codes.
type OpError struct {
	Op      string
	Message string
	Err     error
}

func (e *OpError) Error() string { return e.Message }

func (e *OpError) Unwrap() error { return e.Err }

func newOpError(op, fallback string, err error) *OpError {
	return &OpError{Op: op, Message: service.Message(err, fallback), Err: err}
}
