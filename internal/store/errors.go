package store

import "errors"

// Sentinel error kinds per the error handling design. Handlers translate
// these to status codes with errors.Is; they are never compared by string.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)
