package consumer

import (
	"context"
	"errors"
	"fmt"

	notificationserrors "aptbook/internal/notifications/errors"
	"aptbook/internal/notifications/repository"
	"aptbook/pkg/clock"
	"aptbook/pkg/events"
	"aptbook/pkg/kafka"
	"aptbook/pkg/logger"
	"aptbook/pkg/mailer"
	"aptbook/pkg/model"

	"github.com/google/uuid"
)

// Dispatcher turns bus events into stored notifications and e-mails.
type Dispatcher struct {
	repo       repository.NotificationRepository
	recipients repository.RecipientDirectory
	mailer     mailer.Mailer
	clock      clock.Clock
	log        *logger.Logger
}

func NewDispatcher(
	repo repository.NotificationRepository,
	recipients repository.RecipientDirectory,
	mail mailer.Mailer,
	clk clock.Clock,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		recipients: recipients,
		mailer:     mail,
		clock:      clk,
		log:        log,
	}
}

// draft is a notification before it is addressed to a stored record.
type draft struct {
	userID        string
	relatedUserID string
	kind          model.NotificationType
	title         string
	message       string
	apartmentID   string
	bookingID     string
	email         bool
}

// Handle is a kafka.MessageHandler. Unknown event types are acknowledged and dropped.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	var drafts []draft

	switch msg.GetEventType() {
	case events.BookingCreated, events.BookingConfirmed, events.BookingCancelled:
		var ev events.BookingEvent
		if err := msg.DecodeValue(&ev); err != nil {
			return err
		}
		drafts = bookingDrafts(msg.GetEventType(), ev)
	case events.ApartmentVerified:
		var ev events.ApartmentEvent
		if err := msg.DecodeValue(&ev); err != nil {
			return err
		}
		drafts = apartmentDrafts(ev)
	case events.UserRegistered:
		var ev events.UserEvent
		if err := msg.DecodeValue(&ev); err != nil {
			return err
		}
		drafts = userDrafts(ev)
	default:
		d.log.Debug("Ignoring event", "event_type", msg.GetEventType(), "topic", msg.Topic)
		return nil
	}

	eventID := msg.GetEventID()
	if eventID == "" {
		return kafka.NewPermanentError("event has no id", nil)
	}
	for _, dr := range drafts {
		if err := d.deliver(ctx, eventID, dr); err != nil {
			return err
		}
	}
	return nil
}

// deliver stores one notification and mails it. A redelivered event finds
// its notification already stored and sends nothing.
func (d *Dispatcher) deliver(ctx context.Context, eventID string, dr draft) error {
	if dr.userID == "" {
		return nil
	}

	n := &model.Notification{
		ID:             uuid.NewString(),
		UserID:         dr.userID,
		RelatedUserID:  dr.relatedUserID,
		Title:          dr.title,
		Message:        dr.message,
		Type:           dr.kind,
		TargetAudience: model.AudienceUser,
		ApartmentID:    dr.apartmentID,
		BookingID:      dr.bookingID,
		EventID:        eventID,
		CreatedAt:      d.clock.Now().UTC(),
	}
	if err := d.repo.Insert(ctx, n); err != nil {
		if errors.Is(err, notificationserrors.ErrDuplicate) {
			d.log.Info("Notification already recorded", "event_id", eventID, "user_id", dr.userID)
			return nil
		}
		return fmt.Errorf("store notification: %w", err)
	}

	if dr.email {
		d.sendMail(ctx, n)
	}
	return nil
}

// sendMail logs failures. The notification is already stored, so a retry
// would not resend the mail anyway.
func (d *Dispatcher) sendMail(ctx context.Context, n *model.Notification) {
	recipient, err := d.recipients.FindRecipient(ctx, n.UserID)
	if err != nil {
		d.log.Warn("No e-mail recipient for notification", "user_id", n.UserID, "error", err)
		return
	}

	greeting := "Hello,"
	if recipient.FirstName != "" {
		greeting = fmt.Sprintf("Hello %s,", recipient.FirstName)
	}
	msg, err := mailer.Compose(recipient.Email, n.Title, "", greeting, n.Message)
	if err != nil {
		d.log.Error("Failed to compose notification e-mail", "notification_id", n.ID, "error", err)
		return
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		d.log.Error("Failed to send notification e-mail", "notification_id", n.ID, "to", recipient.Email, "error", err)
	}
}

func bookingDrafts(eventType string, ev events.BookingEvent) []draft {
	stay := fmt.Sprintf("%s from %s to %s", ev.ApartmentTitle, ev.CheckIn, ev.CheckOut)
	guest := draft{userID: ev.GuestID, relatedUserID: ev.HostID, apartmentID: ev.ApartmentID, bookingID: ev.BookingID, email: true}
	host := draft{userID: ev.HostID, relatedUserID: ev.GuestID, apartmentID: ev.ApartmentID, bookingID: ev.BookingID, email: true}

	switch eventType {
	case events.BookingCreated:
		guest.kind, host.kind = model.NotificationBookingCreated, model.NotificationBookingCreated
		guest.title = "Booking request received"
		guest.message = fmt.Sprintf("Your booking of %s is pending payment. Total: %s %s.", stay, ev.TotalPrice.StringFixed(2), ev.Currency)
		host.title = "New booking request"
		host.message = fmt.Sprintf("A guest requested %s.", stay)
	case events.BookingConfirmed:
		guest.kind, host.kind = model.NotificationBookingConfirmed, model.NotificationBookingConfirmed
		guest.title = "Booking confirmed"
		guest.message = fmt.Sprintf("Your payment was received and your booking of %s is confirmed.", stay)
		host.title = "Booking confirmed"
		host.message = fmt.Sprintf("The booking of %s has been paid and confirmed.", stay)
	case events.BookingCancelled:
		guest.kind, host.kind = model.NotificationBookingCancelled, model.NotificationBookingCancelled
		guest.title = "Booking cancelled"
		guest.message = fmt.Sprintf("The booking of %s was cancelled.", stay)
		host.title = "Booking cancelled"
		host.message = guest.message
		// the person who cancelled does not need an e-mail about it
		guest.email = ev.ActorID != ev.GuestID
		host.email = ev.ActorID != ev.HostID
	}
	return []draft{guest, host}
}

func apartmentDrafts(ev events.ApartmentEvent) []draft {
	return []draft{{
		userID:        ev.HostID,
		relatedUserID: ev.ActorID,
		kind:          model.NotificationApartmentApproved,
		title:         "Apartment approved",
		message:       fmt.Sprintf("%s has been verified and is now listed.", ev.Title),
		apartmentID:   ev.ApartmentID,
		email:         true,
	}}
}

// userDrafts records a welcome message. Registration already mails the OTP.
func userDrafts(ev events.UserEvent) []draft {
	return []draft{{
		userID:  ev.UserID,
		kind:    model.NotificationSystem,
		title:   "Welcome to aptbook",
		message: "Your account has been created. Verify your e-mail to start booking.",
	}}
}
