package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "aptbook/internal/bookings/errors"
	"aptbook/pkg/config"
	mongotx "aptbook/pkg/db/mongo"
	"aptbook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

// Filter narrows booking listings. Empty fields match everything.
type Filter struct {
	ApartmentID string
	GuestID     string
	HostID      string
	Status      model.BookingStatus
}

// Transition is a compare-and-set status change. The update applies only
// while the booking is still in one of From (and FromPayment, when set).
type Transition struct {
	From                  []model.BookingStatus
	FromPayment           []model.PaymentStatus
	Status                model.BookingStatus
	PaymentStatus         model.PaymentStatus
	ProviderTransactionID string
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByProviderTransactionID(ctx context.Context, txnID string) (*model.Booking, error)
	Find(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	FindActiveOverlapping(ctx context.Context, apartmentID string, checkIn, checkOut model.Date, excludeID string) ([]*model.Booking, error)
	UpdateStay(ctx context.Context, booking *model.Booking) error
	Transition(ctx context.Context, id string, t Transition) (*model.Booking, error)
	SetCheckoutSession(ctx context.Context, id, sessionID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return nil
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoBookingRepository) FindByProviderTransactionID(ctx context.Context, txnID string) (*model.Booking, error) {
	if txnID == "" {
		return nil, bookingserrors.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"provider_transaction_id": txnID})
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) Find(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func buildFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.ApartmentID != "" {
		filter["apartment_id"] = f.ApartmentID
	}
	if f.GuestID != "" {
		filter["guest_id"] = f.GuestID
	}
	if f.HostID != "" {
		filter["host_id"] = f.HostID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

// FindActiveOverlapping returns pending or confirmed bookings of the apartment
// that hold any night of [checkIn, checkOut).
func (r *mongoBookingRepository) FindActiveOverlapping(ctx context.Context, apartmentID string, checkIn, checkOut model.Date, excludeID string) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := overlapFilter(apartmentID, checkIn, checkOut, excludeID)

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode overlapping bookings: %w", err)
	}
	return bookings, nil
}

func overlapFilter(apartmentID string, checkIn, checkOut model.Date, excludeID string) bson.M {
	filter := bson.M{
		"apartment_id": apartmentID,
		"status":       bson.M{"$in": model.ActiveBookingStatuses},
		"check_in":     bson.M{"$lt": checkOut},
		"check_out":    bson.M{"$gt": checkIn},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	return filter
}

// UpdateStay persists new dates, party size and price. It only applies while
// the booking is still pending.
func (r *mongoBookingRepository) UpdateStay(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	booking.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	filter := bson.M{"_id": booking.ID, "status": model.BookingPending}
	update := bson.M{
		"$set": bson.M{
			"check_in":     booking.CheckIn,
			"check_out":    booking.CheckOut,
			"nights":       booking.Nights,
			"guests_count": booking.GuestsCount,
			"total_price":  booking.TotalPrice,
			"currency":     booking.Currency,
			"updated_at":   booking.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missReason(ctx, booking.ID)
	}
	return nil
}

func (r *mongoBookingRepository) Transition(ctx context.Context, id string, t Transition) (*model.Booking, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id}
	if len(t.From) > 0 {
		filter["status"] = bson.M{"$in": t.From}
	}
	if len(t.FromPayment) > 0 {
		filter["payment_status"] = bson.M{"$in": t.FromPayment}
	}

	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	if t.Status != "" {
		set["status"] = t.Status
	}
	if t.PaymentStatus != "" {
		set["payment_status"] = t.PaymentStatus
	}
	if t.ProviderTransactionID != "" {
		set["provider_transaction_id"] = t.ProviderTransactionID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Booking
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.missReason(ctx, id)
		}
		return nil, fmt.Errorf("failed to transition booking: %w", err)
	}
	return &updated, nil
}

// missReason tells a missing booking apart from one whose status moved on.
func (r *mongoBookingRepository) missReason(ctx context.Context, id string) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check booking existence: %w", err)
	}
	if n == 0 {
		return bookingserrors.ErrNotFound
	}
	return bookingserrors.ErrStatusChanged
}

func (r *mongoBookingRepository) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"checkout_session_id": sessionID,
			"updated_at":          time.Now().UTC().Truncate(time.Millisecond),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to store checkout session: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
