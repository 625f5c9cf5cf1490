package domain

import "errors"

var (
	// ErrInvalidID is returned when a path id is not an integer.
	ErrInvalidID = errors.New("invalid id")

	// ErrValidation is returned when a map event fails structural or
	// constraint validation. Wrapped by *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when no map event has the requested id.
	ErrNotFound = errors.New("map event not found")

	// ErrStorage is returned for any failure talking to the backing store.
	ErrStorage = errors.New("storage operation failed")
)
