package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "GBP"

type PropertyType string

const (
	PropertyApartment  PropertyType = "apartment"
	PropertyRoom       PropertyType = "room"
	PropertyEntireHome PropertyType = "entire_home"
	PropertyStudio     PropertyType = "studio"
	PropertyVilla      PropertyType = "villa"
)

type Address struct {
	Country string `json:"country" bson:"country" validate:"required,min=2,max=100"`
	State   string `json:"state,omitempty" bson:"state,omitempty" validate:"omitempty,max=100"`
	City    string `json:"city" bson:"city" validate:"required,min=2,max=100"`
	Street  string `json:"street,omitempty" bson:"street,omitempty" validate:"omitempty,max=200"`
}

type ApartmentImage struct {
	URL        string    `json:"url" bson:"url"`
	IsCover    bool      `json:"is_cover" bson:"is_cover"`
	UploadedAt time.Time `json:"uploaded_at" bson:"uploaded_at"`
}

// ApartmentPricing is optional on an apartment. WeekendPrice is informational
// and does not take part in booking totals.
type ApartmentPricing struct {
	PricePerNight decimal.Decimal  `json:"price_per_night" bson:"price_per_night"`
	CleaningFee   decimal.Decimal  `json:"cleaning_fee" bson:"cleaning_fee"`
	ServiceFee    decimal.Decimal  `json:"service_fee" bson:"service_fee"`
	WeekendPrice  *decimal.Decimal `json:"weekend_price,omitempty" bson:"weekend_price,omitempty"`
	Currency      string           `json:"currency" bson:"currency"`
}

type Apartment struct {
	ID             string            `json:"id,omitempty" bson:"_id,omitempty"`
	HostID         string            `json:"host_id" bson:"host_id"`
	Title          string            `json:"title" bson:"title"`
	Description    string            `json:"description" bson:"description"`
	PropertyType   PropertyType      `json:"property_type" bson:"property_type"`
	TotalBedrooms  int               `json:"total_bedrooms" bson:"total_bedrooms"`
	TotalBathrooms int               `json:"total_bathrooms" bson:"total_bathrooms"`
	MaxGuests      int               `json:"max_guests" bson:"max_guests"`
	IsActive       bool              `json:"is_active" bson:"is_active"`
	IsVerified     bool              `json:"is_verified" bson:"is_verified"`
	Address        Address           `json:"address" bson:"address"`
	Amenities      []string          `json:"amenities" bson:"amenities"`
	Rules          []string          `json:"rules" bson:"rules"`
	Images         []ApartmentImage  `json:"images" bson:"images"`
	Pricing        *ApartmentPricing `json:"pricing,omitempty" bson:"pricing,omitempty"`
	CreatedAt      time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" bson:"updated_at"`
}

type ApartmentInput struct {
	Title          string       `json:"title" validate:"required,min=3,max=200"`
	Description    string       `json:"description" validate:"max=5000"`
	PropertyType   PropertyType `json:"property_type" validate:"required,oneof=apartment room entire_home studio villa"`
	TotalBedrooms  int          `json:"total_bedrooms" validate:"min=0,max=50"`
	TotalBathrooms int          `json:"total_bathrooms" validate:"min=0,max=50"`
	MaxGuests      int          `json:"max_guests" validate:"required,min=1,max=100"`
	IsActive       *bool        `json:"is_active,omitempty"`
	Address        Address      `json:"address"`
	Amenities      []string     `json:"amenities,omitempty" validate:"omitempty,max=50,dive,required,max=100"`
	Rules          []string     `json:"rules,omitempty" validate:"omitempty,max=50,dive,required,max=300"`
}

type ApartmentUpdate struct {
	Title          *string       `json:"title,omitempty" validate:"omitempty,min=3,max=200"`
	Description    *string       `json:"description,omitempty" validate:"omitempty,max=5000"`
	PropertyType   *PropertyType `json:"property_type,omitempty" validate:"omitempty,oneof=apartment room entire_home studio villa"`
	TotalBedrooms  *int          `json:"total_bedrooms,omitempty" validate:"omitempty,min=0,max=50"`
	TotalBathrooms *int          `json:"total_bathrooms,omitempty" validate:"omitempty,min=0,max=50"`
	MaxGuests      *int          `json:"max_guests,omitempty" validate:"omitempty,min=1,max=100"`
	IsActive       *bool         `json:"is_active,omitempty"`
	Address        *Address      `json:"address,omitempty"`
	Amenities      *[]string     `json:"amenities,omitempty" validate:"omitempty,max=50,dive,required,max=100"`
	Rules          *[]string     `json:"rules,omitempty" validate:"omitempty,max=50,dive,required,max=300"`
}

type PricingInput struct {
	PricePerNight decimal.Decimal  `json:"price_per_night"`
	CleaningFee   decimal.Decimal  `json:"cleaning_fee"`
	ServiceFee    decimal.Decimal  `json:"service_fee"`
	WeekendPrice  *decimal.Decimal `json:"weekend_price,omitempty"`
	Currency      string           `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
}

type ApartmentAvailability struct {
	ID          string `json:"id,omitempty" bson:"_id,omitempty"`
	ApartmentID string `json:"apartment_id" bson:"apartment_id"`
	Date        Date   `json:"date" bson:"date"`
	IsAvailable bool   `json:"is_available" bson:"is_available"`
}

type AvailabilityInput struct {
	Days []AvailabilityDay `json:"days" validate:"required,min=1,max=366,dive"`
}

type AvailabilityDay struct {
	Date        *Date `json:"date" validate:"required"`
	IsAvailable bool  `json:"is_available"`
}

type ApartmentFilter struct {
	City      string
	MinGuests int
	HostID    string
	// IncludeUnlisted also returns inactive or unverified apartments.
	IncludeUnlisted bool
}
