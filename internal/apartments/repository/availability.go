package repository

import (
	"context"
	"fmt"

	"aptbook/pkg/config"
	mongotx "aptbook/pkg/db/mongo"
	"aptbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const AvailabilityCollectionName = "Apartment_availability"

// AvailabilityRepository stores per-day overrides of an apartment's calendar.
// Days without a document are available.
type AvailabilityRepository interface {
	FindRange(ctx context.Context, apartmentID string, from, to model.Date) ([]*model.ApartmentAvailability, error)
	Upsert(ctx context.Context, apartmentID string, days []model.AvailabilityDay) error
	DeleteForApartment(ctx context.Context, apartmentID string) error
}

type mongoAvailabilityRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAvailabilityRepository(cfg *config.Config) AvailabilityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAvailabilityRepository{
		cfg:        cfg,
		collection: db.Collection(AvailabilityCollectionName),
	}
}

// FindRange returns the overrides for days in [from, to).
func (r *mongoAvailabilityRepository) FindRange(ctx context.Context, apartmentID string, from, to model.Date) ([]*model.ApartmentAvailability, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"apartment_id": apartmentID,
		"date":         bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer cursor.Close(ctx)

	days := []*model.ApartmentAvailability{}
	if err := cursor.All(ctx, &days); err != nil {
		return nil, fmt.Errorf("failed to decode availability: %w", err)
	}
	return days, nil
}

func (r *mongoAvailabilityRepository) Upsert(ctx context.Context, apartmentID string, days []model.AvailabilityDay) error {
	if len(days) == 0 {
		return nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	writes := make([]mongo.WriteModel, 0, len(days))
	for _, day := range days {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"apartment_id": apartmentID, "date": *day.Date}).
			SetUpdate(bson.M{"$set": bson.M{"is_available": day.IsAvailable}}).
			SetUpsert(true))
	}

	if _, err := r.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to upsert availability: %w", err)
	}
	return nil
}

func (r *mongoAvailabilityRepository) DeleteForApartment(ctx context.Context, apartmentID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteMany(ctx, bson.M{"apartment_id": apartmentID}); err != nil {
		return fmt.Errorf("failed to delete availability: %w", err)
	}
	return nil
}
