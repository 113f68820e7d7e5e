// Package mockstorage provides a testify-based mock implementation
// of the repository interface used by the router package.
// It is used for unit testing HTTP handlers by simulating store behavior
// and by asserting which store calls were (or were not) made.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/fenix/internal/models"
)

// RepositoryMock is a testify mock that implements storage.Repository.
type RepositoryMock struct {
	mock.Mock
}

// Find mocks an equality-filter lookup.
func (m *RepositoryMock) Find(ctx context.Context, filter models.Document) ([]models.Document, error) {
	args := m.Called(ctx, filter)
	documents, _ := args.Get(0).([]models.Document)
	return documents, args.Error(1)
}

// FindOne mocks a single-document lookup.
func (m *RepositoryMock) FindOne(ctx context.Context, filter models.Document) (models.Document, bool, error) {
	args := m.Called(ctx, filter)
	document, _ := args.Get(0).(models.Document)
	return document, args.Bool(1), args.Error(2)
}

// FindAll mocks listing a whole collection.
func (m *RepositoryMock) FindAll(ctx context.Context) ([]models.Document, error) {
	args := m.Called(ctx)
	documents, _ := args.Get(0).([]models.Document)
	return documents, args.Error(1)
}

// Insert mocks storing a new document.
func (m *RepositoryMock) Insert(ctx context.Context, document models.Document) (models.Document, error) {
	args := m.Called(ctx, document)
	stored, _ := args.Get(0).(models.Document)
	return stored, args.Error(1)
}

// UpdateFields mocks a partial update by identifier.
func (m *RepositoryMock) UpdateFields(
	ctx context.Context,
	id primitive.ObjectID,
	fields models.Document,
) (int64, error) {
	args := m.Called(ctx, id, fields)
	matched, _ := args.Get(0).(int64)
	return matched, args.Error(1)
}

// DeleteByID mocks removing a document by identifier.
func (m *RepositoryMock) DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, id)
	deleted, _ := args.Get(0).(int64)
	return deleted, args.Error(1)
}

// PingerMock mocks the store health check.
type PingerMock struct {
	mock.Mock
}

// Ping mocks the pinger interface to simulate a health check.
func (m *PingerMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
