package mongo

import (
	"context"
	"fmt"

	"aptbook/internal/migrations/mongo/validators"
	"aptbook/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is one collection with its schema validator and indexes.
type Collection struct {
	Name      string
	Validator bson.M
	Indexes   []mongo.IndexModel
}

var (
	ApartmentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "host_id", Value: 1}}},
		{Keys: bson.D{
			{Key: "is_active", Value: 1},
			{Key: "is_verified", Value: 1},
			{Key: "address.city", Value: 1},
			{Key: "max_guests", Value: 1},
		}},
	}

	AvailabilityIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "apartment_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("apartment_date_unique"),
		},
	}

	BookingsIndexes = []mongo.IndexModel{
		// overlap checks scan one apartment's active bookings by date
		{Keys: bson.D{
			{Key: "apartment_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "check_in", Value: 1},
			{Key: "check_out", Value: 1},
		}},
		{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{
			Keys:    bson.D{{Key: "provider_transaction_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
		},
	}

	ReviewsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "apartment_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("apartment_user_unique"),
		},
		{Keys: bson.D{{Key: "apartment_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	NotificationsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("event_user_unique").
				SetPartialFilterExpression(bson.M{"event_id": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	UsersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "user_type", Value: 1}}},
	}
)

// Collections lists every collection the services use, in creation order.
func Collections() []Collection {
	return []Collection{
		{Name: "Users", Validator: validators.UserValidator, Indexes: UsersIndexes},
		{Name: "Apartments", Validator: validators.ApartmentValidator, Indexes: ApartmentsIndexes},
		{Name: "Apartment_availability", Validator: validators.AvailabilityValidator, Indexes: AvailabilityIndexes},
		{Name: "Bookings", Validator: validators.BookingValidator, Indexes: BookingsIndexes},
		{Name: "Booking_locks", Validator: validators.BookingLockValidator, Indexes: BookingLocksIndexes},
		{Name: "Reviews", Validator: validators.ReviewValidator, Indexes: ReviewsIndexes},
		{Name: "Notifications", Validator: validators.NotificationValidator, Indexes: NotificationsIndexes},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
