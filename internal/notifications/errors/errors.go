package errors

import "errors"

var (
	ErrNotFound = errors.New("notification not found")

	// ErrDuplicate means the event was already turned into a notification for this user.
	ErrDuplicate = errors.New("notification already recorded")

	ErrRecipientNotFound = errors.New("recipient not found")
)
