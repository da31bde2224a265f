package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	notificationserrors "aptbook/internal/notifications/errors"
	"aptbook/internal/notifications/repository"
	"aptbook/pkg/clock"
	"aptbook/pkg/events"
	"aptbook/pkg/kafka"
	"aptbook/pkg/logger"
	"aptbook/pkg/mailer"
	"aptbook/pkg/model"

	"github.com/shopspring/decimal"
)

const (
	guestID = "65b000000000000000000002"
	hostID  = "65b000000000000000000001"
)

type memoryNotifications struct {
	repository.NotificationRepository

	mu     sync.Mutex
	stored []*model.Notification
	err    error
}

func (m *memoryNotifications) Insert(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.stored {
		if existing.EventID == n.EventID && existing.UserID == n.UserID {
			return notificationserrors.ErrDuplicate
		}
	}
	m.stored = append(m.stored, n)
	return nil
}

func (m *memoryNotifications) forUser(userID string) []*model.Notification {
	var out []*model.Notification
	for _, n := range m.stored {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type directory map[string]*repository.Recipient

func (d directory) FindRecipient(_ context.Context, userID string) (*repository.Recipient, error) {
	r, ok := d[userID]
	if !ok {
		return nil, notificationserrors.ErrRecipientNotFound
	}
	return r, nil
}

type recordingMailer struct {
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fixture struct {
	dispatcher *Dispatcher
	store      *memoryNotifications
	mail       *recordingMailer
}

func newFixture() *fixture {
	f := &fixture{store: &memoryNotifications{}, mail: &recordingMailer{}}
	people := directory{
		guestID: {ID: guestID, Email: "guest@example.com", FirstName: "Gail"},
		hostID:  {ID: hostID, Email: "host@example.com", FirstName: "Hal"},
	}
	now := clock.Fixed(time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC))
	f.dispatcher = NewDispatcher(f.store, people, f.mail, now, logger.Discard())
	return f
}

func message(t *testing.T, eventType string, payload any) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().WithKey("k").WithEventType(eventType).WithValue(payload).Build()
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func bookingEvent(actor string) events.BookingEvent {
	return events.BookingEvent{
		BookingID:      "b1",
		ApartmentID:    "a1",
		ApartmentTitle: "Canal-side loft",
		GuestID:        guestID,
		HostID:         hostID,
		CheckIn:        model.NewDate(2025, 7, 10),
		CheckOut:       model.NewDate(2025, 7, 13),
		TotalPrice:     decimal.RequireFromString("330"),
		Currency:       "GBP",
		ActorID:        actor,
	}
}

func TestHandle_BookingCreatedNotifiesGuestAndHost(t *testing.T) {
	f := newFixture()

	if err := f.dispatcher.Handle(context.Background(), message(t, events.BookingCreated, bookingEvent(guestID))); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	for _, user := range []string{guestID, hostID} {
		got := f.store.forUser(user)
		if len(got) != 1 {
			t.Fatalf("user %s has %d notifications, want 1", user, len(got))
		}
		n := got[0]
		if n.Type != model.NotificationBookingCreated || n.BookingID != "b1" || n.ApartmentID != "a1" || n.IsRead {
			t.Errorf("notification = %+v", n)
		}
	}
	if msg := f.store.forUser(guestID)[0].Message; msg != "Your booking of Canal-side loft from 2025-07-10 to 2025-07-13 is pending payment. Total: 330.00 GBP." {
		t.Errorf("guest message = %q", msg)
	}
	if len(f.mail.sent) != 2 {
		t.Errorf("sent %d e-mails, want 2", len(f.mail.sent))
	}
}

func TestHandle_RedeliveryIsIdempotent(t *testing.T) {
	f := newFixture()
	msg := message(t, events.BookingConfirmed, bookingEvent(""))

	for i := 0; i < 3; i++ {
		if err := f.dispatcher.Handle(context.Background(), msg); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	if len(f.store.stored) != 2 {
		t.Errorf("stored %d notifications, want 2", len(f.store.stored))
	}
	if len(f.mail.sent) != 2 {
		t.Errorf("sent %d e-mails, want 2", len(f.mail.sent))
	}
}

func TestHandle_CancellationSkipsMailToActor(t *testing.T) {
	f := newFixture()

	if err := f.dispatcher.Handle(context.Background(), message(t, events.BookingCancelled, bookingEvent(guestID))); err != nil {
		t.Fatal(err)
	}

	if len(f.store.stored) != 2 {
		t.Fatalf("stored %d notifications, want 2", len(f.store.stored))
	}
	if len(f.mail.sent) != 1 || f.mail.sent[0].To != "host@example.com" {
		t.Errorf("sent = %+v, want only the host", f.mail.sent)
	}
}

func TestHandle_OtherEvents(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		payload   any
		wantUser  string
		wantType  model.NotificationType
		wantMails int
	}{
		{
			name:      "apartment verified",
			eventType: events.ApartmentVerified,
			payload:   events.ApartmentEvent{ApartmentID: "a1", HostID: hostID, Title: "Loft", ActorID: "admin"},
			wantUser:  hostID,
			wantType:  model.NotificationApartmentApproved,
			wantMails: 1,
		},
		{
			name:      "user registered",
			eventType: events.UserRegistered,
			payload:   events.UserEvent{UserID: guestID, Email: "guest@example.com", FirstName: "Gail"},
			wantUser:  guestID,
			wantType:  model.NotificationSystem,
			wantMails: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if err := f.dispatcher.Handle(context.Background(), message(t, tt.eventType, tt.payload)); err != nil {
				t.Fatal(err)
			}
			got := f.store.forUser(tt.wantUser)
			if len(got) != 1 || got[0].Type != tt.wantType {
				t.Fatalf("notifications = %+v", got)
			}
			if len(f.mail.sent) != tt.wantMails {
				t.Errorf("sent %d e-mails, want %d", len(f.mail.sent), tt.wantMails)
			}
		})
	}
}

func TestHandle_Errors(t *testing.T) {
	t.Run("unknown event is acknowledged", func(t *testing.T) {
		f := newFixture()
		if err := f.dispatcher.Handle(context.Background(), message(t, "booking.archived", map[string]string{})); err != nil {
			t.Errorf("err = %v, want nil", err)
		}
		if len(f.store.stored) != 0 {
			t.Error("stored a notification for an unknown event")
		}
	})

	t.Run("undecodable payload is permanent", func(t *testing.T) {
		f := newFixture()
		msg := message(t, events.BookingCreated, nil)
		msg.Value = []byte("{not json")
		err := f.dispatcher.Handle(context.Background(), msg)
		if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
			t.Errorf("err = %v, want permanent", err)
		}
	})

	t.Run("store failure is returned for retry", func(t *testing.T) {
		f := newFixture()
		f.store.err = errors.New("server selection error")
		err := f.dispatcher.Handle(context.Background(), message(t, events.BookingCreated, bookingEvent(guestID)))
		if kafka.ClassifyError(err) != kafka.ErrorTypeTransient {
			t.Errorf("err = %v, want transient", err)
		}
	})

	t.Run("mail failure does not fail the event", func(t *testing.T) {
		f := newFixture()
		f.mail.err = errors.New("smtp down")
		if err := f.dispatcher.Handle(context.Background(), message(t, events.BookingCreated, bookingEvent(guestID))); err != nil {
			t.Errorf("err = %v, want nil", err)
		}
		if len(f.store.stored) != 2 {
			t.Errorf("stored %d notifications, want 2", len(f.store.stored))
		}
	})
}
