// Package domain holds the errors shared by every ledger aggregate.
package domain

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized is returned when a caller is not authorized to perform an action
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStoreUnavailable is returned when the ledger store cannot be reached.
	// Callers may retry with backoff.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)
