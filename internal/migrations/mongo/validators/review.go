package validators

import "go.mongodb.org/mongo-driver/bson"

var ReviewValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"apartment_id", "user_id", "rating", "comment", "created_at"},
		"properties": bson.M{
			"apartment_id": objectIDString,
			"user_id":      objectIDString,
			"rating": bson.M{
				"bsonType": integer,
				"minimum":  1,
				"maximum":  5,
			},
			"comment": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 2000,
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
