package validators

import "go.mongodb.org/mongo-driver/bson"

var ApartmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"host_id",
			"title",
			"property_type",
			"max_guests",
			"is_active",
			"is_verified",
			"address",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"host_id": objectIDString,

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 200,
			},

			"property_type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"apartment",
					"room",
					"entire_home",
					"studio",
					"villa",
				},
			},

			"max_guests": bson.M{
				"bsonType": integer,
				"minimum":  1,
				"maximum":  100,
			},

			"is_active": bson.M{
				"bsonType": "bool",
			},

			"is_verified": bson.M{
				"bsonType": "bool",
			},

			"address": bson.M{
				"bsonType": "object",
				"required": []string{"country", "city"},
				"properties": bson.M{
					"country": bson.M{"bsonType": "string"},
					"city":    bson.M{"bsonType": "string"},
				},
			},

			"images": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"url", "is_cover"},
				},
			},

			"pricing": bson.M{
				"bsonType": "object",
				"required": []string{"price_per_night", "cleaning_fee", "service_fee", "currency"},
				"properties": bson.M{
					"price_per_night": bson.M{"bsonType": "decimal"},
					"cleaning_fee":    bson.M{"bsonType": "decimal"},
					"service_fee":     bson.M{"bsonType": "decimal"},
					"weekend_price":   bson.M{"bsonType": "decimal"},
					"currency":        currency,
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var AvailabilityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"apartment_id", "date", "is_available"},
		"properties": bson.M{
			"apartment_id": objectIDString,
			"date": bson.M{
				"bsonType": "date",
			},
			"is_available": bson.M{
				"bsonType": "bool",
			},
		},
	},
}
