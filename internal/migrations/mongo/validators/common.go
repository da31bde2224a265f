package validators

import "go.mongodb.org/mongo-driver/bson"

// Go ints are written as int32 when they fit and int64 otherwise.
var integer = []string{"int", "long"}

var objectIDString = bson.M{
	"bsonType":  "string",
	"minLength": 24,
	"maxLength": 24,
}

var currency = bson.M{
	"bsonType": "string",
	"pattern":  "^[A-Z]{3}$",
}
