package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/jacquard/internal/draft"
)

// Error codes for draft loading.
const (
	ErrCodeDraftNotFound = "DRAFT_NOT_FOUND"
	ErrCodeDraftInvalid  = "DRAFT_INVALID"
)

// LoadError represents an error that occurred while loading a draft file.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// loadDraft reads a draft file. Failures carry ExitCommandError.
func loadDraft(path string) (*draft.File, error) {
	file, err := draft.LoadFile(path)
	if err == nil {
		return file, nil
	}
	code := ErrCodeDraftInvalid
	if errors.Is(err, os.ErrNotExist) {
		code = ErrCodeDraftNotFound
	}
	return nil, WrapExitError(ExitCommandError, "failed to load draft",
		&LoadError{Code: code, Path: path, Message: err.Error(), Err: err})
}
