package domain

import "errors"

// Errors shared across packages. Check with errors.Is.
var (
	ErrInvalidOutcome = errors.New("invalid review outcome")
	ErrNotFound       = errors.New("not found")

	// ErrConflict is returned when a card was changed by someone else between
	// reading and writing it.
	ErrConflict = errors.New("card was modified concurrently")

	ErrValidation = errors.New("validation failed")
)
