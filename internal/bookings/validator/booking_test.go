package validator

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingserrors "aptbook/internal/bookings/errors"
	"aptbook/pkg/clock"
	"aptbook/pkg/logger"
	"aptbook/pkg/model"
)

// memoryBookings applies the same active-overlap predicate as the store.
type memoryBookings struct {
	bookings []*model.Booking
	err      error
}

func (m *memoryBookings) FindActiveOverlapping(_ context.Context, apartmentID string, in, out model.Date, excludeID string) ([]*model.Booking, error) {
	if m.err != nil {
		return nil, m.err
	}
	var found []*model.Booking
	for _, b := range m.bookings {
		if b.ApartmentID == apartmentID && b.ID != excludeID && b.Status.IsActive() && b.Overlaps(in, out) {
			found = append(found, b)
		}
	}
	return found, nil
}

func date(s string) *model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func newTestValidator(existing ...*model.Booking) *BookingValidator {
	now := clock.Fixed(time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC))
	return NewBookingValidator(now, &memoryBookings{bookings: existing}, logger.Discard())
}

func TestBookingValidator_Validate(t *testing.T) {
	apt := &model.Apartment{ID: "apt1", MaxGuests: 4}
	existing := &model.Booking{
		ID:          "b1",
		ApartmentID: "apt1",
		CheckIn:     *date("2025-07-10"),
		CheckOut:    *date("2025-07-15"),
		Status:      model.BookingConfirmed,
	}
	cancelled := &model.Booking{
		ID:          "b2",
		ApartmentID: "apt1",
		CheckIn:     *date("2025-07-20"),
		CheckOut:    *date("2025-07-25"),
		Status:      model.BookingCancelled,
	}
	v := newTestValidator(existing, cancelled)

	tests := []struct {
		name    string
		c       Candidate
		wantErr error
	}{
		{
			name:    "valid free range",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-07-01"), CheckOut: date("2025-07-05"), GuestsCount: 2},
			wantErr: nil,
		},
		{
			name:    "missing apartment",
			c:       Candidate{CheckIn: date("2025-07-01"), CheckOut: date("2025-07-05"), GuestsCount: 2},
			wantErr: bookingserrors.ErrApartmentRequired,
		},
		{
			name:    "missing checkout",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-07-01"), GuestsCount: 2},
			wantErr: bookingserrors.ErrDatesRequired,
		},
		{
			name:    "same day checkout",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-07-05"), CheckOut: date("2025-07-05"), GuestsCount: 1},
			wantErr: bookingserrors.ErrCheckoutNotAfterCheckin,
		},
		{
			name:    "reversed dates",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-07-06"), CheckOut: date("2025-07-05"), GuestsCount: 1},
			wantErr: bookingserrors.ErrCheckoutNotAfterCheckin,
		},
		{
			name:    "checkin yesterday",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-06-30"), CheckOut: date("2025-07-02"), GuestsCount: 1},
			wantErr: bookingserrors.ErrCheckinInPast,
		},
		{
			name:    "too many guests",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-07-01"), CheckOut: date("2025-07-03"), GuestsCount: 6},
			wantErr: bookingserrors.ErrGuestLimit,
		},
		{
			name:    "overlaps confirmed booking",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-07-14"), CheckOut: date("2025-07-16"), GuestsCount: 2},
			wantErr: bookingserrors.ErrDateConflict,
		},
		{
			name:    "contained in confirmed booking",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-07-11"), CheckOut: date("2025-07-12"), GuestsCount: 2},
			wantErr: bookingserrors.ErrDateConflict,
		},
		{
			name:    "starts on existing checkout day",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-07-15"), CheckOut: date("2025-07-18"), GuestsCount: 2},
			wantErr: nil,
		},
		{
			name:    "ends on existing checkin day",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-07-08"), CheckOut: date("2025-07-10"), GuestsCount: 2},
			wantErr: nil,
		},
		{
			name:    "cancelled bookings release dates",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-07-21"), CheckOut: date("2025-07-23"), GuestsCount: 2},
			wantErr: nil,
		},
		{
			name:    "booking never conflicts with itself",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-07-10"), CheckOut: date("2025-07-15"), GuestsCount: 2, ExcludeID: "b1"},
			wantErr: nil,
		},
		{
			name:    "past check wins over guest check",
			c:       Candidate{Apartment: apt, CheckIn: date("2025-06-01"), CheckOut: date("2025-06-03"), GuestsCount: 10},
			wantErr: bookingserrors.ErrCheckinInPast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), tt.c)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBookingValidator_GuestLimitCarriesMax(t *testing.T) {
	v := newTestValidator()
	apt := &model.Apartment{ID: "apt1", MaxGuests: 4}

	err := v.Validate(context.Background(), Candidate{Apartment: apt, CheckIn: date("2025-07-02"), CheckOut: date("2025-07-04"), GuestsCount: 6})

	var limitErr *bookingserrors.GuestLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("Validate() error = %v, want GuestLimitError", err)
	}
	if limitErr.Max != 4 {
		t.Errorf("Max = %d, want 4", limitErr.Max)
	}
	if err.Error() != "guest count exceeds maximum" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestBookingValidator_TodayUsesClockLocation(t *testing.T) {
	// 23:30 UTC on June 30 is already July 1 in Jerusalem
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	now := clock.Fixed(time.Date(2025, 6, 30, 23, 30, 0, 0, time.UTC).In(loc))
	v := NewBookingValidator(now, &memoryBookings{}, logger.Discard())
	apt := &model.Apartment{ID: "apt1", MaxGuests: 2}

	err = v.Validate(context.Background(), Candidate{Apartment: apt, CheckIn: date("2025-06-30"), CheckOut: date("2025-07-02"), GuestsCount: 1})
	if !errors.Is(err, bookingserrors.ErrCheckinInPast) {
		t.Errorf("Validate() error = %v, want ErrCheckinInPast", err)
	}

	err = v.Validate(context.Background(), Candidate{Apartment: apt, CheckIn: date("2025-07-01"), CheckOut: date("2025-07-02"), GuestsCount: 1})
	if err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestBookingValidator_StoreFailure(t *testing.T) {
	storeErr := errors.New("connection reset")
	v := NewBookingValidator(clock.Fixed(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)), &memoryBookings{err: storeErr}, logger.Discard())

	err := v.Validate(context.Background(), Candidate{
		Apartment:   &model.Apartment{ID: "apt1", MaxGuests: 2},
		CheckIn:     date("2025-07-02"),
		CheckOut:    date("2025-07-03"),
		GuestsCount: 1,
	})
	if !errors.Is(err, storeErr) {
		t.Errorf("Validate() error = %v, want wrapped store error", err)
	}
}

func TestBookingValidator_ValidateInput(t *testing.T) {
	v := newTestValidator()
	zero := 0
	two := 2

	if err := v.ValidateInput(&model.CreateBookingInput{GuestsCount: &two}); err != nil {
		t.Errorf("ValidateInput() error = %v", err)
	}

	err := v.ValidateInput(&model.CreateBookingInput{GuestsCount: &zero})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 1 || verrs[0].Field != "guests_count" {
		t.Errorf("ValidateInput() error = %v, want guests_count violation", err)
	}
}
