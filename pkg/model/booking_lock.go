package model

import "time"

// BookingLock is a per-apartment advisory lock. Its _id is unique, so only one
// writer at a time can hold the lock for an apartment. A TTL index on
// expires_at removes locks left behind by crashed writers.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	FencedAt  time.Time `bson:"fenced_at,omitempty" json:"fenced_at,omitempty"`
}
