package validators

import "go.mongodb.org/mongo-driver/bson"

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "user_id", "title", "message", "notification_type", "target_audience", "is_read", "created_at"},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},
			"user_id": objectIDString,
			"title": bson.M{
				"bsonType":  "string",
				"maxLength": 255,
			},
			"message": bson.M{
				"bsonType": "string",
			},
			"notification_type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"system",
					"apartment_available",
					"apartment_pending",
					"apartment_approved",
					"apartment_rejected",
					"booking_created",
					"booking_confirmed",
					"booking_cancelled",
				},
			},
			"target_audience": bson.M{
				"bsonType": "string",
				"enum":     []string{"user", "admin", "both"},
			},
			"is_read": bson.M{
				"bsonType": "bool",
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
