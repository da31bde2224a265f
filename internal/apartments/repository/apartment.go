package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	apartmentserrors "aptbook/internal/apartments/errors"
	"aptbook/pkg/config"
	mongotx "aptbook/pkg/db/mongo"
	"aptbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Apartments"
)

type ApartmentRepository interface {
	Create(ctx context.Context, apartment *model.Apartment) error
	FindByID(ctx context.Context, id string) (*model.Apartment, error)
	Find(ctx context.Context, filter model.ApartmentFilter, limit int, offset int64) ([]*model.Apartment, error)
	Count(ctx context.Context, filter model.ApartmentFilter) (int64, error)
	Update(ctx context.Context, apartment *model.Apartment) error
	Delete(ctx context.Context, id string) error
	SetVerified(ctx context.Context, id string, verified bool) error
	SetPricing(ctx context.Context, id string, pricing *model.ApartmentPricing) error
	AddImage(ctx context.Context, id string, image model.ApartmentImage) error
}

type mongoApartmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoApartmentRepository(cfg *config.Config) ApartmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoApartmentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", apartmentserrors.ErrInvalidID, id)
	}
	return oid, nil
}

// buildFilter turns a listing filter into a query. Public listings only show
// active and verified apartments.
func buildFilter(f model.ApartmentFilter) bson.M {
	filter := bson.M{}
	if !f.IncludeUnlisted {
		filter["is_active"] = true
		filter["is_verified"] = true
	}
	if f.City != "" {
		filter["address.city"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.City) + "$", Options: "i"}
	}
	if f.MinGuests > 0 {
		filter["max_guests"] = bson.M{"$gte": f.MinGuests}
	}
	if f.HostID != "" {
		filter["host_id"] = f.HostID
	}
	return filter
}

func (r *mongoApartmentRepository) Create(ctx context.Context, apartment *model.Apartment) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	apartment.CreatedAt = now
	apartment.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, apartment)
	if err != nil {
		return fmt.Errorf("failed to create apartment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		apartment.ID = oid.Hex()
	}
	return nil
}

func (r *mongoApartmentRepository) FindByID(ctx context.Context, id string) (*model.Apartment, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var apartment model.Apartment
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&apartment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", apartmentserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find apartment: %w", err)
	}
	return &apartment, nil
}

func (r *mongoApartmentRepository) Find(ctx context.Context, filter model.ApartmentFilter, limit int, offset int64) ([]*model.Apartment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query apartments: %w", err)
	}
	defer cursor.Close(ctx)

	apartments := []*model.Apartment{}
	if err = cursor.All(ctx, &apartments); err != nil {
		return nil, fmt.Errorf("failed to decode apartments: %w", err)
	}
	return apartments, nil
}

func (r *mongoApartmentRepository) Count(ctx context.Context, filter model.ApartmentFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count apartments: %w", err)
	}
	return count, nil
}

// Update replaces the host-editable attributes. Verification, pricing and
// images have their own write paths.
func (r *mongoApartmentRepository) Update(ctx context.Context, apartment *model.Apartment) error {
	oid, err := objectID(apartment.ID)
	if err != nil {
		return err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	apartment.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"title":           apartment.Title,
			"description":     apartment.Description,
			"property_type":   apartment.PropertyType,
			"total_bedrooms":  apartment.TotalBedrooms,
			"total_bathrooms": apartment.TotalBathrooms,
			"max_guests":      apartment.MaxGuests,
			"is_active":       apartment.IsActive,
			"address":         apartment.Address,
			"amenities":       apartment.Amenities,
			"rules":           apartment.Rules,
			"updated_at":      apartment.UpdatedAt,
		},
	}
	return r.updateOne(ctx, oid, update, "update apartment")
}

func (r *mongoApartmentRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete apartment: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", apartmentserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoApartmentRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"is_verified": verified, "updated_at": time.Now().UTC()}}
	return r.updateOne(ctx, oid, update, "verify apartment")
}

func (r *mongoApartmentRepository) SetPricing(ctx context.Context, id string, pricing *model.ApartmentPricing) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"pricing": pricing, "updated_at": time.Now().UTC()}}
	return r.updateOne(ctx, oid, update, "set pricing")
}

// AddImage appends an image. A new cover image demotes the previous one.
func (r *mongoApartmentRepository) AddImage(ctx context.Context, id string, image model.ApartmentImage) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if image.IsCover {
		demote := bson.M{"$set": bson.M{"images.$[].is_cover": false}}
		if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid, "images.0": bson.M{"$exists": true}}, demote); err != nil {
			return fmt.Errorf("failed to demote cover image: %w", err)
		}
	}

	update := bson.M{
		"$push": bson.M{"images": image},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	return r.updateOne(ctx, oid, update, "add image")
}

func (r *mongoApartmentRepository) updateOne(ctx context.Context, oid primitive.ObjectID, update bson.M, op string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", apartmentserrors.ErrNotFound, oid.Hex())
	}
	return nil
}
