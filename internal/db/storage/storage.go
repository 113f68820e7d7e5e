package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/fenix/internal/models"
)

// Repository is the per-collection contract every document store backend implements.
// Failures of the store itself are reported as *models.StoreError; "nothing matched"
// is never an error.
type Repository interface {
	Find(ctx context.Context, filter models.Document) ([]models.Document, error)

	FindOne(ctx context.Context, filter models.Document) (models.Document, bool, error)

	FindAll(ctx context.Context) ([]models.Document, error)

	Insert(ctx context.Context, document models.Document) (models.Document, error)

	UpdateFields(
		ctx context.Context,
		id primitive.ObjectID,
		fields models.Document,
	) (int64, error)

	DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error)
}
