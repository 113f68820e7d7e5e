// Package memorystorage keeps collections of documents in process memory.
// It is the fallback backend when neither MongoDB nor PostgreSQL is configured,
// and the backend the router tests run against.
package memorystorage

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/fenix/internal/models"
	"github.com/patric-chuzhbe/fenix/internal/objectid"
)

// ErrDuplicateID is returned when an inserted document carries an _id that is already taken.
var ErrDuplicateID = errors.New("duplicate _id")

type MemoryStorage struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

// Collection holds the documents of one named collection in insertion order.
type Collection struct {
	name      string
	mu        sync.RWMutex
	documents []models.Document
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		collections: map[string]*Collection{},
	}, nil
}

// Collection returns the collection with the given name, creating it on first use.
func (theStorage *MemoryStorage) Collection(name string) *Collection {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	collection, ok := theStorage.collections[name]
	if !ok {
		collection = &Collection{name: name}
		theStorage.collections[name] = collection
	}

	return collection
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (c *Collection) Find(ctx context.Context, filter models.Document) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStoreError("find", c.name, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	result := []models.Document{}
	for _, document := range c.documents {
		if matches(document, filter) {
			result = append(result, document.Clone())
		}
	}

	return result, nil
}

func (c *Collection) FindOne(ctx context.Context, filter models.Document) (models.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, models.NewStoreError("findOne", c.name, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, document := range c.documents {
		if matches(document, filter) {
			return document.Clone(), true, nil
		}
	}

	return nil, false, nil
}

func (c *Collection) FindAll(ctx context.Context) ([]models.Document, error) {
	return c.Find(ctx, nil)
}

func (c *Collection) Insert(ctx context.Context, document models.Document) (models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStoreError("insert", c.name, err)
	}

	stored := document.Clone()
	if _, hasID := stored[models.IDField]; !hasID {
		stored[models.IDField] = objectid.New()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(stored[models.IDField]) >= 0 {
		return nil, models.NewStoreError("insert", c.name, ErrDuplicateID)
	}
	c.documents = append(c.documents, stored)

	return stored.Clone(), nil
}

func (c *Collection) UpdateFields(
	ctx context.Context,
	id primitive.ObjectID,
	fields models.Document,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, models.NewStoreError("update", c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return 0, nil
	}

	if newID, ok := fields[models.IDField]; ok && !reflect.DeepEqual(newID, id) {
		return 0, models.NewStoreError("update", c.name, models.ErrImmutableID)
	}

	updated := c.documents[i].Clone()
	for key, value := range fields {
		updated[key] = value
	}
	c.documents[i] = updated

	return 1, nil
}

func (c *Collection) DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, models.NewStoreError("delete", c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return 0, nil
	}
	c.documents = append(c.documents[:i], c.documents[i+1:]...)

	return 1, nil
}

// indexOf must be called with c.mu held.
func (c *Collection) indexOf(id any) int {
	for i, document := range c.documents {
		if reflect.DeepEqual(document[models.IDField], id) {
			return i
		}
	}

	return -1
}

func matches(document, filter models.Document) bool {
	for key, expected := range filter {
		actual, ok := document[key]
		if !ok || !reflect.DeepEqual(actual, expected) {
			return false
		}
	}

	return true
}
