package repository

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "aptbook/internal/bookings/errors"
	"aptbook/pkg/config"
	mongotx "aptbook/pkg/db/mongo"
	"aptbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ApartmentCollectionName = "Apartments"

// ApartmentReader is the booking side's read-only view of listings.
type ApartmentReader interface {
	FindByID(ctx context.Context, id string) (*model.Apartment, error)
}

type mongoApartmentReader struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewApartmentReader(cfg *config.Config) ApartmentReader {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoApartmentReader{
		cfg:        cfg,
		collection: db.Collection(ApartmentCollectionName),
	}
}

func (r *mongoApartmentReader) FindByID(ctx context.Context, id string) (*model.Apartment, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, bookingserrors.ErrApartmentNotFound
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	// images are not needed to price or validate a stay
	opts := options.FindOne().SetProjection(bson.M{"images": 0, "description": 0})

	var apartment model.Apartment
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}, opts).Decode(&apartment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrApartmentNotFound
		}
		return nil, fmt.Errorf("failed to find apartment: %w", err)
	}
	return &apartment, nil
}
