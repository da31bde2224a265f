package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
	BookingDeclined  BookingStatus = "declined"
)

// ActiveBookingStatuses are the statuses that hold dates on the calendar.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingConfirmed}

func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingConfirmed
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Booking struct {
	ID                    string          `json:"id" bson:"_id"`
	ApartmentID           string          `json:"apartment_id" bson:"apartment_id"`
	GuestID               string          `json:"guest_id" bson:"guest_id"`
	HostID                string          `json:"host_id" bson:"host_id"`
	CheckIn               Date            `json:"check_in" bson:"check_in"`
	CheckOut              Date            `json:"check_out" bson:"check_out"`
	Nights                int             `json:"nights" bson:"nights"`
	GuestsCount           int             `json:"guests_count" bson:"guests_count"`
	TotalPrice            decimal.Decimal `json:"total_price" bson:"total_price"`
	Currency              string          `json:"currency" bson:"currency"`
	Status                BookingStatus   `json:"status" bson:"status"`
	PaymentStatus         PaymentStatus   `json:"payment_status" bson:"payment_status"`
	ProviderTransactionID string          `json:"provider_transaction_id,omitempty" bson:"provider_transaction_id,omitempty"`
	CheckoutSessionID     string          `json:"-" bson:"checkout_session_id,omitempty"`
	CreatedAt             time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" bson:"updated_at"`
}

// Overlaps reports whether b holds any night of the half-open range [checkIn, checkOut).
func (b *Booking) Overlaps(checkIn, checkOut Date) bool {
	return b.CheckIn.Before(checkOut) && b.CheckOut.After(checkIn)
}

// CreateBookingInput is the only shape accepted when creating a booking.
// Apartment and guest come from the route and the caller identity.
type CreateBookingInput struct {
	CheckIn     *Date `json:"check_in"`
	CheckOut    *Date `json:"check_out"`
	GuestsCount *int  `json:"guests_count,omitempty" validate:"omitempty,min=1,max=100"`
}

// UpdateBookingInput may move the dates or change the party size of a pending booking.
type UpdateBookingInput struct {
	CheckIn     *Date `json:"check_in,omitempty"`
	CheckOut    *Date `json:"check_out,omitempty"`
	GuestsCount *int  `json:"guests_count,omitempty" validate:"omitempty,min=1,max=100"`
}

func (u *UpdateBookingInput) IsEmpty() bool {
	return u.CheckIn == nil && u.CheckOut == nil && u.GuestsCount == nil
}

type CheckoutResponse struct {
	BookingID   string `json:"booking_id"`
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}
