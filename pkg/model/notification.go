package model

import "time"

type NotificationType string

const (
	NotificationSystem             NotificationType = "system"
	NotificationApartmentAvailable NotificationType = "apartment_available"
	NotificationApartmentPending   NotificationType = "apartment_pending"
	NotificationApartmentApproved  NotificationType = "apartment_approved"
	NotificationApartmentRejected  NotificationType = "apartment_rejected"
	NotificationBookingCreated     NotificationType = "booking_created"
	NotificationBookingConfirmed   NotificationType = "booking_confirmed"
	NotificationBookingCancelled   NotificationType = "booking_cancelled"
)

type Audience string

const (
	AudienceUser  Audience = "user"
	AudienceAdmin Audience = "admin"
	AudienceBoth  Audience = "both"
)

type Notification struct {
	ID             string           `json:"id" bson:"_id"`
	UserID         string           `json:"user_id" bson:"user_id"`
	RelatedUserID  string           `json:"related_user_id,omitempty" bson:"related_user_id,omitempty"`
	Title          string           `json:"title" bson:"title"`
	Message        string           `json:"message" bson:"message"`
	Type           NotificationType `json:"notification_type" bson:"notification_type"`
	TargetAudience Audience         `json:"target_audience" bson:"target_audience"`
	ApartmentID    string           `json:"apartment_id,omitempty" bson:"apartment_id,omitempty"`
	BookingID      string           `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	// EventID is the bus event that produced the record. It is unique per
	// recipient so redelivered events do not duplicate notifications.
	EventID   string    `json:"-" bson:"event_id,omitempty"`
	IsRead    bool      `json:"is_read" bson:"is_read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
