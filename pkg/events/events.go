package events

import (
	"aptbook/pkg/model"

	"github.com/shopspring/decimal"
)

const (
	TopicBookings   = "booking-events"
	TopicApartments = "apartment-events"
	TopicUsers      = "user-events"

	DLQSuffix     = ".dlq"
	SchemaVersion = "1"
)

const (
	BookingCreated    = "booking.created"
	BookingConfirmed  = "booking.confirmed"
	BookingCancelled  = "booking.cancelled"
	ApartmentVerified = "apartment.verified"
	UserRegistered    = "user.registered"
)

func DLQ(topic string) string {
	return topic + DLQSuffix
}

type BookingEvent struct {
	BookingID      string          `json:"booking_id"`
	ApartmentID    string          `json:"apartment_id"`
	ApartmentTitle string          `json:"apartment_title"`
	GuestID        string          `json:"guest_id"`
	HostID         string          `json:"host_id"`
	CheckIn        model.Date      `json:"check_in"`
	CheckOut       model.Date      `json:"check_out"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Currency       string          `json:"currency"`
	// ActorID is the user who caused the event, e.g. who cancelled.
	ActorID string `json:"actor_id,omitempty"`
}

func NewBookingEvent(b *model.Booking, apartmentTitle, actorID string) BookingEvent {
	return BookingEvent{
		BookingID:      b.ID,
		ApartmentID:    b.ApartmentID,
		ApartmentTitle: apartmentTitle,
		GuestID:        b.GuestID,
		HostID:         b.HostID,
		CheckIn:        b.CheckIn,
		CheckOut:       b.CheckOut,
		TotalPrice:     b.TotalPrice,
		Currency:       b.Currency,
		ActorID:        actorID,
	}
}

type ApartmentEvent struct {
	ApartmentID string `json:"apartment_id"`
	HostID      string `json:"host_id"`
	Title       string `json:"title"`
	ActorID     string `json:"actor_id,omitempty"`
}

type UserEvent struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}
