package model

import "time"

type Review struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty"`
	ApartmentID string    `json:"apartment_id" bson:"apartment_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	Rating      int       `json:"rating" bson:"rating"`
	Comment     string    `json:"comment" bson:"comment"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,min=1,max=2000"`
}

type ReviewUpdate struct {
	Rating  *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,min=1,max=2000"`
}
