package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"apartment_id",
			"guest_id",
			"host_id",
			"check_in",
			"check_out",
			"nights",
			"guests_count",
			"total_price",
			"currency",
			"status",
			"payment_status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"apartment_id": objectIDString,
			"guest_id":     objectIDString,
			"host_id":      objectIDString,

			"check_in": bson.M{
				"bsonType": "date",
			},

			"check_out": bson.M{
				"bsonType": "date",
			},

			"nights": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"guests_count": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"total_price": bson.M{
				"bsonType": "decimal",
			},

			"currency": currency,

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"cancelled",
					"completed",
					"declined",
				},
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"unpaid",
					"paid",
					"refunded",
				},
			},

			"provider_transaction_id": bson.M{
				"bsonType":  "string",
				"maxLength": 255,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var BookingLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "owner", "expires_at", "created_at"},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
				"pattern":  "^booking_lock_",
			},
			"owner": bson.M{
				"bsonType": "string",
			},
			"expires_at": bson.M{
				"bsonType": "date",
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
			"fenced_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
