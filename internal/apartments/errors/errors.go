package errors

import "errors"

var (
	ErrNotFound = errors.New("apartment not found")

	ErrInvalidID = errors.New("invalid apartment ID format")

	ErrImageRejected = errors.New("image store rejected the upload")

	ErrImageStoreUnavailable = errors.New("image store unavailable")
)
