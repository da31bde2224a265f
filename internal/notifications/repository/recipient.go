package repository

import (
	"context"
	"errors"
	"fmt"

	notificationserrors "aptbook/internal/notifications/errors"
	"aptbook/pkg/config"
	mongotx "aptbook/pkg/db/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const UsersCollectionName = "Users"

// Recipient is the slice of a user record needed to address an e-mail.
type Recipient struct {
	ID        string `bson:"_id"`
	Email     string `bson:"email"`
	FirstName string `bson:"first_name"`
	IsActive  bool   `bson:"is_active"`
}

type RecipientDirectory interface {
	FindRecipient(ctx context.Context, userID string) (*Recipient, error)
}

type mongoRecipientDirectory struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRecipientDirectory(cfg *config.Config) RecipientDirectory {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRecipientDirectory{
		cfg:        cfg,
		collection: db.Collection(UsersCollectionName),
	}
}

func (d *mongoRecipientDirectory) FindRecipient(ctx context.Context, userID string) (*Recipient, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", notificationserrors.ErrRecipientNotFound, userID)
	}

	ctx, cancel := mongotx.WithTimeout(ctx, d.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{"email": 1, "first_name": 1, "is_active": 1})
	var recipient Recipient
	if err := d.collection.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&recipient); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", notificationserrors.ErrRecipientNotFound, userID)
		}
		return nil, fmt.Errorf("failed to find recipient: %w", err)
	}
	return &recipient, nil
}
