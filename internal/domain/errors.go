package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidMove    = errors.New("invalid card move")
	ErrStaleReference = errors.New("referenced card, list or user no longer exists")
	ErrUnauthorized   = errors.New("unauthorized")
)
