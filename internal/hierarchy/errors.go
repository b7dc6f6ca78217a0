package hierarchy

import (
	"errors"
	"fmt"

	"github.com/roach88/jacquard/internal/model"
)

// ErrEmptyName is returned when a rename would leave a project without a name.
var ErrEmptyName = errors.New("name must not be empty")

// CascadeError reports a cascade delete that stopped part way.
//
// Deleted records stay deleted. The project row is still present, so the
// cascade can be retried.
type CascadeError struct {
	ProjectID model.ID

	// Deleted is the number of child records removed before the failure.
	Deleted int

	// Total is the number of child records the cascade set out to remove.
	Total int

	Err error
}

// Error implements the error interface.
func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade delete of project %d stopped after %d/%d records: %v",
		e.ProjectID, e.Deleted, e.Total, e.Err)
}

// Unwrap returns the failure that stopped the cascade.
func (e *CascadeError) Unwrap() error {
	return e.Err
}

// IsCascadeError returns true if err is a partial cascade.
// Uses errors.As to handle wrapped errors.
func IsCascadeError(err error) bool {
	var ce *CascadeError
	return errors.As(err, &ce)
}
