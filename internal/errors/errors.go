package errors

import "errors"

// Common application errors for type-safe error handling.
// These errors can be checked using errors.Is() instead of string comparison.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrSecurityViolation = errors.New("path outside permitted root")
	ErrIntegrity         = errors.New("content digest mismatch after copy")
	ErrStoreConflict     = errors.New("record already exists")
)
