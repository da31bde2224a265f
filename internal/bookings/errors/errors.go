package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrApartmentNotFound = errors.New("apartment not found")

	ErrApartmentRequired = errors.New("apartment required")

	ErrDatesRequired = errors.New("dates required")

	ErrCheckoutNotAfterCheckin = errors.New("checkout must be after checkin")

	ErrCheckinInPast = errors.New("checkin in the past")

	ErrGuestLimit = errors.New("guest count exceeds maximum")

	ErrDateConflict = errors.New("date range conflict")

	ErrInvalidNights = errors.New("nights must be positive")

	// ErrStatusChanged means a compare-and-set transition found the booking
	// in a status it was not allowed to move from.
	ErrStatusChanged = errors.New("booking status changed")

	ErrLockHeld = errors.New("booking lock held by another writer")

	// ErrLockLost means the caller's lease expired and the lock was taken
	// over or released before its write.
	ErrLockLost = errors.New("booking lock lease lost")
)

// GuestLimitError carries the apartment's capacity alongside ErrGuestLimit.
type GuestLimitError struct {
	Max int
}

func (e *GuestLimitError) Error() string {
	return ErrGuestLimit.Error()
}

func (e *GuestLimitError) Is(target error) bool {
	return target == ErrGuestLimit
}
