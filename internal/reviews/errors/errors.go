package errors

import "errors"

var (
	ErrNotFound = errors.New("review not found")

	ErrInvalidID = errors.New("invalid review ID format")

	// ErrAlreadyReviewed is returned when the user already reviewed the apartment.
	ErrAlreadyReviewed = errors.New("apartment already reviewed by this user")
)
