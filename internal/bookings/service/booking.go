package service

import (
	"context"
	"errors"
	"sync"
	"time"

	bookingserrors "aptbook/internal/bookings/errors"
	"aptbook/internal/bookings/pricing"
	"aptbook/internal/bookings/repository"
	"aptbook/internal/bookings/validator"
	"aptbook/internal/payments/provider"
	"aptbook/pkg/auth"
	"aptbook/pkg/config"
	apperrors "aptbook/pkg/errors"
	"aptbook/pkg/events"
	"aptbook/pkg/model"
	"aptbook/pkg/sealer"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const clientReferencePrefix = "booking"

// Roles accepted by ListMine.
const (
	RoleGuest = "guest"
	RoleHost  = "host"
)

type BookingService interface {
	ListForApartment(ctx context.Context, apartmentID string, limit int, offset int64) ([]*model.Booking, int64, error)
	Create(ctx context.Context, apartmentID string, input *model.CreateBookingInput) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	Update(ctx context.Context, id string, input *model.UpdateBookingInput) (*model.Booking, error)
	Cancel(ctx context.Context, id string) (*model.Booking, error)
	ListMine(ctx context.Context, role string, limit int, offset int64) ([]*model.Booking, int64, error)
	CreateCheckout(ctx context.Context, id string) (*model.CheckoutResponse, error)
	HandlePaymentEvent(ctx context.Context, payload []byte) error
}

type bookingService struct {
	repo       repository.BookingRepository
	lockRepo   repository.BookingLockRepository
	apartments repository.ApartmentReader
	validator  *validator.BookingValidator
	payments   provider.Provider
	sealer     *sealer.Sealer
	publisher  events.Publisher
	cfg        *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	apartments repository.ApartmentReader,
	validator *validator.BookingValidator,
	payments provider.Provider,
	sealer *sealer.Sealer,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:       repo,
		lockRepo:   lockRepo,
		apartments: apartments,
		validator:  validator,
		payments:   payments,
		sealer:     sealer,
		publisher:  publisher,
		cfg:        cfg,
	}
}

func (s *bookingService) ListForApartment(ctx context.Context, apartmentID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, 0, err
	}

	apartment, err := s.loadApartment(ctx, apartmentID)
	if err != nil {
		return nil, 0, err
	}
	if apartment.HostID != caller.UserID && !caller.IsAdmin() {
		return nil, 0, apperrors.Forbidden("Only the host can list bookings of this apartment")
	}

	return s.list(ctx, repository.Filter{ApartmentID: apartmentID}, limit, offset)
}

func (s *bookingService) ListMine(ctx context.Context, role string, limit int, offset int64) ([]*model.Booking, int64, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, 0, err
	}

	filter := repository.Filter{}
	switch role {
	case "", RoleGuest:
		filter.GuestID = caller.UserID
	case RoleHost:
		filter.HostID = caller.UserID
	default:
		return nil, 0, apperrors.InvalidInput("role must be 'guest' or 'host'")
	}

	return s.list(ctx, filter, limit, offset)
}

func (s *bookingService) list(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.Find(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) Create(ctx context.Context, apartmentID string, input *model.CreateBookingInput) (*model.Booking, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateInput(input); err != nil {
		return nil, apperrors.Validation("Invalid booking input", map[string]any{"errors": err})
	}

	apartment, err := s.loadApartment(ctx, apartmentID)
	if err != nil {
		return nil, err
	}
	if !apartment.IsActive {
		return nil, apperrors.InvalidInput("Apartment is not available for booking")
	}

	guests := 1
	if input.GuestsCount != nil {
		guests = *input.GuestsCount
	}

	booking := &model.Booking{
		ID:            uuid.NewString(),
		ApartmentID:   apartment.ID,
		GuestID:       caller.UserID,
		HostID:        apartment.HostID,
		GuestsCount:   guests,
		Currency:      pricing.Currency(apartment),
		Status:        model.BookingPending,
		PaymentStatus: model.PaymentUnpaid,
	}

	candidate := validator.Candidate{
		Apartment:   apartment,
		CheckIn:     input.CheckIn,
		CheckOut:    input.CheckOut,
		GuestsCount: guests,
	}

	err = s.withApartmentLock(ctx, apartment.ID, func(lockCtx context.Context, fence fenceFunc) error {
		return s.repo.ExecuteTransaction(lockCtx, func(sessCtx mongo.SessionContext) error {
			if err := s.validate(sessCtx, candidate); err != nil {
				return err
			}
			if err := s.price(booking, apartment, *input.CheckIn, *input.CheckOut); err != nil {
				return err
			}
			if err := fence(sessCtx); err != nil {
				return err
			}
			if err := s.repo.Create(sessCtx, booking); err != nil {
				return apperrors.Internal("Failed to create booking", err)
			}
			return nil
		})
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to create booking", "apartment_id", apartmentID, "guest_id", caller.UserID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"apartment_id", booking.ApartmentID,
		"check_in", booking.CheckIn.String(),
		"check_out", booking.CheckOut.String(),
		"total_price", booking.TotalPrice.String(),
	)
	s.publish(ctx, events.BookingCreated, booking, apartment.Title, caller.UserID)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.GuestID != caller.UserID && booking.HostID != caller.UserID && !caller.IsAdmin() {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}
	return booking, nil
}

func (s *bookingService) Update(ctx context.Context, id string, input *model.UpdateBookingInput) (*model.Booking, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if input.IsEmpty() {
		return nil, apperrors.InvalidInput("Nothing to update")
	}
	if err := s.validator.ValidateInput(input); err != nil {
		return nil, apperrors.Validation("Invalid booking input", map[string]any{"errors": err})
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.GuestID != caller.UserID {
		return nil, apperrors.Forbidden("Only the guest can change this booking")
	}
	if existing.Status != model.BookingPending {
		return nil, apperrors.InvalidState("Only pending bookings can be changed", string(existing.Status))
	}

	apartment, err := s.loadApartment(ctx, existing.ApartmentID)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if input.CheckIn != nil {
		merged.CheckIn = *input.CheckIn
	}
	if input.CheckOut != nil {
		merged.CheckOut = *input.CheckOut
	}
	if input.GuestsCount != nil {
		merged.GuestsCount = *input.GuestsCount
	}

	candidate := validator.Candidate{
		Apartment:   apartment,
		CheckIn:     &merged.CheckIn,
		CheckOut:    &merged.CheckOut,
		GuestsCount: merged.GuestsCount,
		ExcludeID:   existing.ID,
	}

	err = s.withApartmentLock(ctx, apartment.ID, func(lockCtx context.Context, fence fenceFunc) error {
		return s.repo.ExecuteTransaction(lockCtx, func(sessCtx mongo.SessionContext) error {
			if err := s.validate(sessCtx, candidate); err != nil {
				return err
			}
			if err := s.price(&merged, apartment, merged.CheckIn, merged.CheckOut); err != nil {
				return err
			}
			if err := fence(sessCtx); err != nil {
				return err
			}
			if err := s.repo.UpdateStay(sessCtx, &merged); err != nil {
				return s.mapStoreError(sessCtx, err, id, "Failed to update booking")
			}
			return nil
		})
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to update booking", "id", id, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Booking updated successfully", "id", id)
	return &merged, nil
}

// Cancel is allowed to the guest and to the host, from pending or confirmed.
func (s *bookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.GuestID != caller.UserID && existing.HostID != caller.UserID && !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Only the guest or the host can cancel this booking")
	}
	if !existing.Status.IsActive() {
		return nil, apperrors.InvalidState("Booking cannot be cancelled", string(existing.Status))
	}

	updated, err := s.repo.Transition(ctx, id, repository.Transition{
		From:   model.ActiveBookingStatuses,
		Status: model.BookingCancelled,
	})
	if err != nil {
		return nil, s.mapStoreError(ctx, err, id, "Failed to cancel booking")
	}

	s.cfg.Log.Info("Booking cancelled", "id", id, "cancelled_by", caller.UserID)
	s.publish(ctx, events.BookingCancelled, updated, s.apartmentTitle(ctx, updated.ApartmentID), caller.UserID)
	return updated, nil
}

func (s *bookingService) CreateCheckout(ctx context.Context, id string) (*model.CheckoutResponse, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.GuestID != caller.UserID {
		return nil, apperrors.Forbidden("Only the guest can pay for this booking")
	}
	if booking.Status != model.BookingPending || booking.PaymentStatus != model.PaymentUnpaid {
		return nil, apperrors.InvalidState("Booking is not awaiting payment", string(booking.Status))
	}
	if !booking.TotalPrice.IsPositive() {
		return nil, apperrors.InvalidInput("Booking has nothing to pay")
	}

	reference := booking.ID
	if s.sealer != nil {
		if reference, err = s.sealer.Seal(clientReferencePrefix, booking.ID); err != nil {
			return nil, apperrors.Internal("Failed to prepare checkout", err)
		}
	}

	session, err := s.payments.CreateCheckoutSession(ctx, provider.CheckoutRequest{
		ClientReference: reference,
		BookingID:       booking.ID,
		ProductName:     s.apartmentTitle(ctx, booking.ApartmentID),
		CustomerEmail:   caller.Email,
		Currency:        booking.Currency,
		AmountMinor:     pricing.MinorUnits(booking.TotalPrice),
		SuccessURL:      s.cfg.PaymentSuccessURL,
		CancelURL:       s.cfg.PaymentCancelURL,
	})
	if err != nil {
		if errors.Is(err, provider.ErrRejected) {
			return nil, apperrors.InvalidInput("Payment provider rejected the checkout request").WithCause(err)
		}
		return nil, apperrors.Unavailable("Payment provider").WithCause(err)
	}

	if err := s.repo.SetCheckoutSession(ctx, booking.ID, session.ID); err != nil {
		return nil, s.mapStoreError(ctx, err, id, "Failed to store checkout session")
	}

	return &model.CheckoutResponse{
		BookingID:   booking.ID,
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

// HandlePaymentEvent applies a verified provider webhook. Replays of an
// already applied event succeed without changing anything.
func (s *bookingService) HandlePaymentEvent(ctx context.Context, payload []byte) error {
	ev, err := provider.ParseEvent(payload)
	if err != nil {
		return apperrors.InvalidInput("Malformed webhook payload")
	}

	switch ev.Type {
	case provider.EventCheckoutCompleted:
		return s.confirmPayment(ctx, ev)
	case provider.EventChargeRefunded:
		return s.refundPayment(ctx, ev)
	default:
		s.cfg.Log.Debug("Ignoring payment event", "event_id", ev.ID, "type", ev.Type)
		return nil
	}
}

func (s *bookingService) confirmPayment(ctx context.Context, ev *provider.Event) error {
	obj := ev.Data.Object
	bookingID, err := s.resolveReference(obj)
	if err != nil {
		s.cfg.Log.Warn("Payment event with unusable reference", "event_id", ev.ID, "error", err)
		return apperrors.InvalidInput("Unknown booking reference")
	}

	txnID := obj.PaymentIntent
	if txnID == "" {
		txnID = obj.ID
	}

	updated, err := s.repo.Transition(ctx, bookingID, repository.Transition{
		From:                  []model.BookingStatus{model.BookingPending},
		FromPayment:           []model.PaymentStatus{model.PaymentUnpaid},
		Status:                model.BookingConfirmed,
		PaymentStatus:         model.PaymentPaid,
		ProviderTransactionID: txnID,
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			current, loadErr := s.repo.FindByID(ctx, bookingID)
			if loadErr == nil && current.Status == model.BookingConfirmed && current.PaymentStatus == model.PaymentPaid {
				s.cfg.Log.Info("Payment already applied", "event_id", ev.ID, "booking_id", bookingID)
				return nil
			}
			s.cfg.Log.Error("Payment received for booking that is no longer pending",
				"event_id", ev.ID,
				"booking_id", bookingID,
			)
			return nil
		}
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			s.cfg.Log.Warn("Payment for unknown booking", "event_id", ev.ID, "booking_id", bookingID, "transaction_id", txnID)
			return nil
		}
		return s.mapStoreError(ctx, err, bookingID, "Failed to confirm booking")
	}

	s.cfg.Log.Info("Booking confirmed by payment", "booking_id", bookingID, "transaction_id", txnID)
	s.publish(ctx, events.BookingConfirmed, updated, s.apartmentTitle(ctx, updated.ApartmentID), "")
	return nil
}

func (s *bookingService) refundPayment(ctx context.Context, ev *provider.Event) error {
	txnID := ev.Data.Object.PaymentIntent
	booking, err := s.repo.FindByProviderTransactionID(ctx, txnID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			s.cfg.Log.Warn("Refund for unknown transaction", "event_id", ev.ID, "transaction_id", txnID)
			return nil
		}
		return apperrors.Internal("Failed to look up refunded booking", err)
	}

	_, err = s.repo.Transition(ctx, booking.ID, repository.Transition{
		FromPayment:   []model.PaymentStatus{model.PaymentPaid},
		PaymentStatus: model.PaymentRefunded,
	})
	if err != nil && !errors.Is(err, bookingserrors.ErrStatusChanged) {
		return s.mapStoreError(ctx, err, booking.ID, "Failed to record refund")
	}

	s.cfg.Log.Info("Booking payment refunded", "booking_id", booking.ID, "transaction_id", txnID)
	return nil
}

func (s *bookingService) resolveReference(obj provider.EventObject) (string, error) {
	if s.sealer != nil && obj.ClientReferenceID != "" {
		parts, err := s.sealer.Open(obj.ClientReferenceID, 2)
		if err != nil {
			return "", err
		}
		if parts[0] != clientReferencePrefix {
			return "", sealer.ErrInvalidToken
		}
		return parts[1], nil
	}
	if obj.ClientReferenceID != "" {
		return obj.ClientReferenceID, nil
	}
	if id := obj.Metadata["booking_id"]; id != "" {
		return id, nil
	}
	return "", bookingserrors.ErrInvalidID
}

// --- Helpers ---

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(ctx, err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

func (s *bookingService) loadApartment(ctx context.Context, id string) (*model.Apartment, error) {
	apartment, err := s.apartments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrApartmentNotFound) {
			return nil, apperrors.NotFoundWithID("Apartment", id)
		}
		return nil, apperrors.Internal("Failed to retrieve apartment", err)
	}
	return apartment, nil
}

func (s *bookingService) apartmentTitle(ctx context.Context, id string) string {
	apartment, err := s.apartments.FindByID(ctx, id)
	if err != nil {
		s.cfg.Log.Warn("Could not resolve apartment title", "apartment_id", id, "error", err)
		return ""
	}
	return apartment.Title
}

func (s *bookingService) validate(ctx context.Context, c validator.Candidate) error {
	err := s.validator.Validate(ctx, c)
	if err == nil {
		return nil
	}

	var limitErr *bookingserrors.GuestLimitError
	switch {
	case errors.As(err, &limitErr):
		return apperrors.Validation(err.Error(), map[string]any{"max_guests": limitErr.Max})
	case errors.Is(err, bookingserrors.ErrDateConflict):
		return apperrors.Conflict(err.Error())
	case errors.Is(err, bookingserrors.ErrApartmentRequired),
		errors.Is(err, bookingserrors.ErrDatesRequired),
		errors.Is(err, bookingserrors.ErrCheckoutNotAfterCheckin),
		errors.Is(err, bookingserrors.ErrCheckinInPast):
		return apperrors.Validation(err.Error(), nil)
	default:
		return apperrors.Internal("Failed to validate booking", err)
	}
}

func (s *bookingService) price(b *model.Booking, apartment *model.Apartment, checkIn, checkOut model.Date) error {
	b.CheckIn = checkIn
	b.CheckOut = checkOut
	b.Nights = pricing.Nights(checkIn, checkOut)

	total, err := pricing.TotalPrice(apartment, b.Nights)
	if err != nil {
		return apperrors.Validation(err.Error(), nil)
	}
	b.TotalPrice = total
	b.Currency = pricing.Currency(apartment)
	return nil
}

func (s *bookingService) mapStoreError(ctx context.Context, err error, id, message string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, bookingserrors.ErrNotFound), errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrStatusChanged):
		current := ""
		if b, loadErr := s.repo.FindByID(ctx, id); loadErr == nil {
			current = string(b.Status)
		}
		return apperrors.InvalidState("Booking status changed, action no longer allowed", current)
	default:
		return apperrors.Internal(message, err)
	}
}

// fenceFunc re-checks the lease right before a write. It must run inside the
// write's transaction.
type fenceFunc func(ctx context.Context) error

// withApartmentLock serialises writers of one apartment's calendar. It polls
// for the lock until BookingLockWait has elapsed. fn runs under a context that
// ends when the lease expires.
func (s *bookingService) withApartmentLock(ctx context.Context, apartmentID string, fn func(ctx context.Context, fence fenceFunc) error) error {
	lockID := repository.LockID(apartmentID)
	owner := uuid.NewString()
	deadline := time.Now().Add(s.cfg.BookingLockWait)

	var lease time.Time
	for {
		lease = time.Now().Add(s.cfg.BookingLockTTL)
		lock := &model.BookingLock{
			ID:        lockID,
			Owner:     owner,
			ExpiresAt: lease,
		}
		err := s.lockRepo.Acquire(ctx, lock)
		if err == nil {
			break
		}
		if !errors.Is(err, bookingserrors.ErrLockHeld) {
			return apperrors.Internal("Failed to acquire booking lock", err)
		}
		if time.Now().Add(s.cfg.BookingLockRetryInterval).After(deadline) {
			s.cfg.Log.Warn("Gave up waiting for booking lock", "lock_id", lockID)
			return apperrors.Conflict("Apartment is busy, retry")
		}

		select {
		case <-ctx.Done():
			return apperrors.Timeout("Request cancelled while waiting for booking lock")
		case <-time.After(s.cfg.BookingLockRetryInterval):
		}
	}

	defer func() {
		if err := s.lockRepo.Release(context.WithoutCancel(ctx), lockID, owner); err != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", err)
		}
	}()

	lockCtx, cancel := context.WithDeadline(ctx, lease)
	defer cancel()

	fence := func(fctx context.Context) error {
		err := fctx.Err()
		if err == nil {
			err = s.lockRepo.Fence(fctx, lockID, owner)
		}
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bookingserrors.ErrLockLost), errors.Is(err, context.DeadlineExceeded):
			s.cfg.Log.Warn("Booking lock lease lost before write", "lock_id", lockID, "owner", owner)
			return apperrors.Conflict("Apartment is busy, retry")
		default:
			return apperrors.Internal("Failed to verify booking lock", err)
		}
	}

	err := fn(lockCtx, fence)
	if err != nil && errors.Is(lockCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil &&
		(apperrors.HasCode(err, apperrors.CodeInternal) || !apperrors.IsAppError(err)) {
		s.cfg.Log.Warn("Booking lock lease expired mid-write", "lock_id", lockID)
		return apperrors.Conflict("Apartment is busy, retry")
	}
	return err
}

// publish emits a booking event after the write committed. Failures are
// logged; the booking itself is already durable.
func (s *bookingService) publish(ctx context.Context, eventType string, b *model.Booking, apartmentTitle, actorID string) {
	payload := events.NewBookingEvent(b, apartmentTitle, actorID)
	if err := s.publisher.Publish(ctx, events.TopicBookings, b.ID, eventType, payload); err != nil {
		s.cfg.Log.Error("Failed to publish booking event", "event_type", eventType, "booking_id", b.ID, "error", err)
	}
}
