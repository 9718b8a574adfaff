package contenttype

import "errors"

var (
	ErrNotFound     = errors.New("content type not found")
	ErrUnknownModel = errors.New("model has no table")
)
