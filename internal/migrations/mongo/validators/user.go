package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"email", "first_name", "last_name", "password_hash", "user_type", "status", "is_active", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"email": bson.M{
				"bsonType":  "string",
				"maxLength": 254,
				"pattern":   "^[^A-Z]+@[^A-Z]+$",
			},

			"phone": bson.M{
				"bsonType": "string",
				"pattern":  `^\+[1-9]\d{1,14}$`,
			},

			"password_hash": bson.M{
				"bsonType":  "string",
				"minLength": 20,
			},

			"user_type": bson.M{
				"bsonType": "string",
				"enum":     []string{"user", "admin", "staff"},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"default",
					"active",
					"inactive",
					"pending",
					"suspended",
					"deleted",
					"blocked",
				},
			},

			"is_active": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
