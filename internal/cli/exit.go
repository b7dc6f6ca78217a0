package cli

import (
	"errors"

	"github.com/roach88/jacquard/internal/draft"
	"github.com/roach88/jacquard/internal/store"
)

// Process exit statuses.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // refused: not found, save rejected, bad filter
	ExitCommandError = 2 // unusable invocation: arguments, config, database
)

// ExitError is a command failure with the status the process should exit
// with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError with no cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError caused by err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the status for err: ExitSuccess for nil, the code of
// the first ExitError in the chain, ExitFailure otherwise.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ErrorCode returns the machine-readable code reported for err.
func ErrorCode(err error) string {
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return string(storeErr.Code)
	}
	if draft.IsValidationError(err) {
		return draft.ErrCodeValidationFailed
	}
	return "COMMAND_FAILED"
}
