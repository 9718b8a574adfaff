package attachment

import (
	"errors"
	"fmt"
)

var (
	ErrQuotaExceeded      = errors.New("file exceeds maximum allowed size")
	ErrStorageFailure     = errors.New("attachment storage failure")
	ErrSessionNotFound    = errors.New("upload session not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrOwnerNotPersisted  = errors.New("owning record has no persisted identifier")
	ErrUnknownContentType = errors.New("unknown content type")
)

// ValidationError is a user-correctable problem with one form field.
type ValidationError struct {
	Field string
	Size  int64
	Max   int64
	Err   error
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Err, ErrQuotaExceeded) {
		return fmt.Sprintf("%s: file size %d exceeds the maximum of %d bytes", e.Field, e.Size, e.Max)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func storageError(op, name string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrStorageFailure, op, name, err)
}
