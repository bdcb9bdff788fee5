package domain

import "errors"

// Sentinel errors shared across storage and service layers.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput is returned when a write is attempted with missing
	// or malformed data.
	ErrInvalidInput = errors.New("invalid input")
)
