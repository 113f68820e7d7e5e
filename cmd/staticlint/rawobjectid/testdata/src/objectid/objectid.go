package objectid

import "go.mongodb.org/mongo-driver/bson/primitive"

func Decode(id string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(id)
}
