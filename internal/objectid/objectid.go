// Package objectid converts identifiers received from clients into MongoDB ObjectIDs.
//
// Every handler that reads an identifier from the URL path goes through Decode,
// so a malformed identifier is rejected before any store call is made.
package objectid

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidID is returned by Decode for anything that is not a 24 character hex string.
var ErrInvalidID = errors.New("invalid object id")

// IsValid reports whether external is a well-formed ObjectID hex string.
func IsValid(external string) bool {
	_, err := Decode(external)

	return err == nil
}

// Decode parses the canonical hex form of an ObjectID.
func Decode(external string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(external)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, external)
	}

	return id, nil
}

// New returns a fresh identifier for stores that do not generate one.
func New() primitive.ObjectID {
	return primitive.NewObjectID()
}
