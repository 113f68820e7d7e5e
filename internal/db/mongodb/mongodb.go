// Package mongodb provides the MongoDB-backed implementation of the document repositories.
// One Client owns the connection pool; each Collection is a thin, concurrency-safe view over
// a named collection of the configured database.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/patric-chuzhbe/fenix/internal/models"
)

// Client is a connected MongoDB client bound to a single database.
type Client struct {
	client            *mongo.Client
	database          *mongo.Database
	connectionTimeout time.Duration
}

// Collection implements storage.Repository over one MongoDB collection.
type Collection struct {
	collection *mongo.Collection
	name       string
}

// New connects to MongoDB at uri and verifies the connection with a ping
// bounded by connectionTimeout.
func New(
	ctx context.Context,
	uri string,
	databaseName string,
	connectionTimeout time.Duration,
) (*Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectionTimeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/db/mongodb/mongodb.go/New(): error while `mongo.Connect()` calling: %w",
			err,
		)
	}

	result := &Client{
		client:            client,
		database:          client.Database(databaseName),
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = result.Close()
		return nil, fmt.Errorf(
			"in internal/db/mongodb/mongodb.go/New(): error while `result.Ping()` calling: %w",
			err,
		)
	}

	return result, nil
}

// Collection returns the repository for the named collection.
func (c *Client) Collection(name string) *Collection {
	return &Collection{
		collection: c.database.Collection(name),
		name:       name,
	}
}

// Ping verifies connectivity with the primary within the configured timeout.
func (c *Client) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.connectionTimeout)
	defer cancel()

	return c.client.Ping(ctxWithTimeout, nil)
}

// Close disconnects the client, waiting at most the configured timeout.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.connectionTimeout)
	defer cancel()

	return c.client.Disconnect(ctx)
}

func (c *Collection) Find(ctx context.Context, filter models.Document) ([]models.Document, error) {
	cursor, err := c.collection.Find(ctx, toBSON(filter))
	if err != nil {
		return nil, models.NewStoreError("find", c.name, err)
	}

	var found []bson.M
	if err := cursor.All(ctx, &found); err != nil {
		return nil, models.NewStoreError("find", c.name, err)
	}

	result := make([]models.Document, 0, len(found))
	for _, document := range found {
		result = append(result, models.Document(document))
	}

	return result, nil
}

func (c *Collection) FindOne(ctx context.Context, filter models.Document) (models.Document, bool, error) {
	var found bson.M
	err := c.collection.FindOne(ctx, toBSON(filter)).Decode(&found)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, models.NewStoreError("findOne", c.name, err)
	}

	return models.Document(found), true, nil
}

func (c *Collection) FindAll(ctx context.Context) ([]models.Document, error) {
	return c.Find(ctx, nil)
}

func (c *Collection) Insert(ctx context.Context, document models.Document) (models.Document, error) {
	result, err := c.collection.InsertOne(ctx, toBSON(document))
	if err != nil {
		return nil, models.NewStoreError("insert", c.name, err)
	}

	stored := document.Clone()
	stored[models.IDField] = result.InsertedID

	return stored, nil
}

func (c *Collection) UpdateFields(
	ctx context.Context,
	id primitive.ObjectID,
	fields models.Document,
) (int64, error) {
	// MongoDB rejects an empty $set; matching is all that is left to report.
	if len(fields) == 0 {
		matched, err := c.collection.CountDocuments(
			ctx,
			bson.M{models.IDField: id},
			options.Count().SetLimit(1),
		)
		if err != nil {
			return 0, models.NewStoreError("update", c.name, err)
		}

		return matched, nil
	}

	result, err := c.collection.UpdateOne(
		ctx,
		bson.M{models.IDField: id},
		bson.M{"$set": toBSON(fields)},
	)
	if err != nil {
		return 0, models.NewStoreError("update", c.name, err)
	}

	return result.MatchedCount, nil
}

func (c *Collection) DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error) {
	result, err := c.collection.DeleteOne(ctx, bson.M{models.IDField: id})
	if err != nil {
		return 0, models.NewStoreError("delete", c.name, err)
	}

	return result.DeletedCount, nil
}

func toBSON(document models.Document) bson.M {
	if document == nil {
		return bson.M{}
	}

	return bson.M(document)
}
