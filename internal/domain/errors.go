package domain

import "errors"

// Sentinel errors shared by every domain package. Callers wrap them with
// context (fmt.Errorf("%w: ...")) and the HTTP layer maps them to status codes.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrPersistence  = errors.New("persistence failure")
)
