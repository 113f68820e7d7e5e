package models

import (
	"errors"
	"fmt"
	"maps"
)

// Document is a schema-less record as it travels between HTTP bodies and the document store.
type Document map[string]any

// IDField is the key under which every store keeps the document identifier.
const IDField = "_id"

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}

	return maps.Clone(d)
}

// WithoutID returns a shallow copy of the document with the identifier field removed.
func (d Document) WithoutID() Document {
	result := d.Clone()
	delete(result, IDField)

	return result
}

const (
	StorageTypeUnknown = iota
	StorageTypeMongo
	StorageTypePostgresql
	StorageTypeMemory
)

// ErrImmutableID mirrors MongoDB's refusal to modify the _id of an existing document.
var ErrImmutableID = errors.New("the _id field is immutable")

// StoreError reports a failure of the underlying document store
// that is not caused by the shape of the request.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s on collection %q: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err, returning nil if err is nil.
func NewStoreError(op, collection string, err error) error {
	if err == nil {
		return nil
	}

	return &StoreError{
		Op:         op,
		Collection: collection,
		Err:        err,
	}
}

// VerifyTokenResponse is the body of GET /users/verify-token.
type VerifyTokenResponse struct {
	IsValid bool     `json:"isValid"`
	User    Document `json:"user,omitempty"`
	Message string   `json:"message,omitempty"`
}

// MessageResponse is the body of successful updates.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse is the body of the health check.
type StatusResponse struct {
	Status string `json:"status"`
}
