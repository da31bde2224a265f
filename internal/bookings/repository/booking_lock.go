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

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Booking_locks"

// LockID is the advisory lock key for an apartment's calendar.
func LockID(apartmentID string) string {
	return "booking_lock_" + apartmentID
}

// BookingLockRepository stores per-apartment advisory locks.
type BookingLockRepository interface {
	// Acquire inserts the lock, or takes it over when the holder's lease has
	// expired. ErrLockHeld means another writer holds a live lease.
	Acquire(ctx context.Context, lock *model.BookingLock) error
	// Fence confirms owner still holds an unexpired lease. Inside a
	// transaction it also writes the lock document, so a concurrent takeover
	// aborts one of the two. ErrLockLost means the lease is gone.
	Fence(ctx context.Context, lockID, owner string) error
	// Release deletes the lock only if owner still holds it.
	Release(ctx context.Context, lockID, owner string) error
}

type mongoBookingLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoBookingLockRepository) Acquire(ctx context.Context, lock *model.BookingLock) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	lock.CreatedAt = now

	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to insert booking lock: %w", err)
	}

	// The TTL monitor runs about once a minute, so expired locks can linger.
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": lock.ID, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{
			"owner":      lock.Owner,
			"expires_at": lock.ExpiresAt,
			"created_at": now,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to take over booking lock: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrLockHeld
	}
	return nil
}

func (r *mongoBookingLockRepository) Fence(ctx context.Context, lockID, owner string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": lockID, "owner": owner, "expires_at": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"fenced_at": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to fence booking lock: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrLockLost
	}
	return nil
}

func (r *mongoBookingLockRepository) Release(ctx context.Context, lockID, owner string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "owner": owner})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to release booking lock: %w", err)
	}
	return nil
}
