package a

import "go.mongodb.org/mongo-driver/bson/primitive"

func decode(id string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(id) // want "decode ids with objectid.Decode instead of primitive.ObjectIDFromHex"
}

func generate() primitive.ObjectID {
	return primitive.NewObjectID()
}

func indirect(id string) error {
	fromHex := primitive.ObjectIDFromHex
	_, err := fromHex(id)
	return err
}
