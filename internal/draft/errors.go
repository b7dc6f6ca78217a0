package draft

import (
	"errors"
	"fmt"
)

// ErrCodeValidationFailed is the code carried by ValidationError.
const ErrCodeValidationFailed = "VALIDATION_FAILED"

var (
	// ErrLastPage is returned when removing the only page of the working set.
	ErrLastPage = errors.New("cannot remove the last page")

	// ErrPageIndex is returned for a page index outside the working set.
	ErrPageIndex = errors.New("page index out of range")

	// ErrYarnIndex is returned for a yarn index outside a page's yarn list.
	ErrYarnIndex = errors.New("yarn index out of range")

	// ErrMediaKind is returned when attaching media of a kind that may not
	// be captured any more (legacy audio) or is unknown.
	ErrMediaKind = errors.New("media kind cannot be attached")
)

// ValidationError reports the pages that failed validation on save.
// Nothing was written when it is returned.
type ValidationError struct {
	// Indices are the 0-based positions of the invalid pages, ascending.
	Indices []int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: pages missing EP image: %v", ErrCodeValidationFailed, e.Indices)
}

// IsValidationError returns true if err is a failed save validation.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
