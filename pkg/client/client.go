package client

import (
	"context"
	"time"

	mongodb "aptbook/pkg/db/mongo"
	"aptbook/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Client holds the process-wide connections shared by repositories and caches.
type Client struct {
	Mongo *mongo.Client
	Redis *redis.Client
	log   *logger.Logger
}

func NewClient(log *logger.Logger) *Client {
	return &Client{log: log}
}

func (c *Client) SetMongo(mongoURI string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(mongoURI).
		SetRegistry(mongodb.NewRegistry())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		c.log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		c.log.Fatal("Failed to ping MongoDB", "error", err)
	}

	c.log.Info("Successfully connected to MongoDB")
	c.Mongo = client
}

func (c *Client) SetRedis(addr, password string, db int, connTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: connTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		c.log.Fatal("Failed to ping Redis", "error", err, "addr", addr)
	}

	c.log.Info("Successfully connected to Redis", "addr", addr)
	c.Redis = rdb
}

func (c *Client) GracefulShutdown(ctx context.Context) {
	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			c.log.Error("Failed to disconnect from MongoDB", "error", err)
		} else {
			c.log.Info("Disconnected from MongoDB")
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.log.Error("Failed to close Redis client", "error", err)
		} else {
			c.log.Info("Closed Redis client")
		}
	}
}
