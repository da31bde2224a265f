package validator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	bookingserrors "aptbook/internal/bookings/errors"
	"aptbook/pkg/clock"
	"aptbook/pkg/logger"
	"aptbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// ConflictChecker finds active bookings that hold any night of a range.
type ConflictChecker interface {
	FindActiveOverlapping(ctx context.Context, apartmentID string, checkIn, checkOut model.Date, excludeID string) ([]*model.Booking, error)
}

// Candidate is a proposed booking, new or an edit of an existing one.
type Candidate struct {
	Apartment   *model.Apartment
	CheckIn     *model.Date
	CheckOut    *model.Date
	GuestsCount int
	// ExcludeID is the booking being edited, which never conflicts with itself.
	ExcludeID string
}

type BookingValidator struct {
	validate  *validator.Validate
	clock     clock.Clock
	conflicts ConflictChecker
	logger    *logger.Logger
}

func NewBookingValidator(clk clock.Clock, conflicts ConflictChecker, log *logger.Logger) *BookingValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate:  v,
		clock:     clk,
		conflicts: conflicts,
		logger:    log,
	}
}

// Validate runs the booking rules in order and stops at the first failure:
// apartment present, both dates present, checkout after checkin, checkin not
// in the past, party within capacity, and no overlap with an active booking.
func (v *BookingValidator) Validate(ctx context.Context, c Candidate) error {
	if c.Apartment == nil {
		return bookingserrors.ErrApartmentRequired
	}
	if c.CheckIn == nil || c.CheckOut == nil || c.CheckIn.IsZero() || c.CheckOut.IsZero() {
		return bookingserrors.ErrDatesRequired
	}
	if !c.CheckIn.Before(*c.CheckOut) {
		return bookingserrors.ErrCheckoutNotAfterCheckin
	}
	if c.CheckIn.Before(model.DateOf(clock.Today(v.clock))) {
		return bookingserrors.ErrCheckinInPast
	}
	if c.GuestsCount > c.Apartment.MaxGuests {
		return &bookingserrors.GuestLimitError{Max: c.Apartment.MaxGuests}
	}

	overlapping, err := v.conflicts.FindActiveOverlapping(ctx, c.Apartment.ID, *c.CheckIn, *c.CheckOut, c.ExcludeID)
	if err != nil {
		return fmt.Errorf("check overlapping bookings: %w", err)
	}
	for _, b := range overlapping {
		if b.ID == c.ExcludeID {
			continue
		}
		if b.Status.IsActive() && b.Overlaps(*c.CheckIn, *c.CheckOut) {
			v.logger.Debug("Booking dates conflict",
				"apartment_id", c.Apartment.ID,
				"conflicting_booking_id", b.ID,
				"check_in", c.CheckIn.String(),
				"check_out", c.CheckOut.String(),
			)
			return bookingserrors.ErrDateConflict
		}
	}

	return nil
}

// ValidateInput checks the field-level constraints declared on an input struct.
func (v *BookingValidator) ValidateInput(input any) error {
	if err := v.validate.Struct(input); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
