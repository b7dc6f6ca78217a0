package store

import (
	"errors"
	"fmt"

	"github.com/roach88/jacquard/internal/model"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeOpenFailed indicates the store could not be opened or migrated.
	// Callers should treat it as fatal for the session.
	ErrCodeOpenFailed ErrorCode = "OPEN_FAILED"

	// ErrCodeWriteFailed indicates an insert, update or delete was aborted.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"

	// ErrCodeNotFound indicates a lookup by ID returned nothing.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeReadFailed indicates a list or query could not be read.
	ErrCodeReadFailed ErrorCode = "READ_FAILED"
)

// Error is returned by every store operation that fails.
type Error struct {
	Code       ErrorCode
	Op         string
	Collection string

	// ID is the entity the operation targeted, zero when not applicable.
	ID model.ID

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	target := e.Collection
	if e.ID != 0 {
		target = fmt.Sprintf("%s/%d", e.Collection, e.ID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s: %v", e.Code, e.Op, target, e.Err)
	}
	return fmt.Sprintf("%s: %s %s", e.Code, e.Op, target)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrPreassignedID is returned when an insert carries an ID. Identity is
// assigned by the store only.
var ErrPreassignedID = errors.New("entity already has an id")

// ErrMissingID is returned when an update carries no ID.
var ErrMissingID = errors.New("entity has no id")

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsNotFound returns true if the error is a not-found lookup.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsWriteFailed returns true if the error is an aborted write.
func IsWriteFailed(err error) bool {
	return hasCode(err, ErrCodeWriteFailed)
}

// IsOpenFailed returns true if the store could not be opened or migrated.
func IsOpenFailed(err error) bool {
	return hasCode(err, ErrCodeOpenFailed)
}

// IsReadFailed returns true if a list or query could not be read.
func IsReadFailed(err error) bool {
	return hasCode(err, ErrCodeReadFailed)
}

func openFailed(err error) *Error {
	return &Error{Code: ErrCodeOpenFailed, Op: "open", Collection: "store", Err: err}
}

func writeFailed(op, collection string, id model.ID, err error) *Error {
	return &Error{Code: ErrCodeWriteFailed, Op: op, Collection: collection, ID: id, Err: err}
}

func notFound(collection string, id model.ID) *Error {
	return &Error{Code: ErrCodeNotFound, Op: "get", Collection: collection, ID: id}
}

func readFailed(op, collection string, err error) *Error {
	return &Error{Code: ErrCodeReadFailed, Op: op, Collection: collection, Err: err}
}
