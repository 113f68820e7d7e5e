package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/fenix/internal/models"
	"github.com/patric-chuzhbe/fenix/internal/objectid"
)

// e.g. host=localhost user=fenix password=fenix dbname=fenix_test sslmode=disable
const databaseDSNEnv = "TEST_DATABASE_DSN"

func setupDB(t *testing.T) *PostgresDB {
	t.Helper()

	databaseDSN := os.Getenv(databaseDSNEnv)
	if databaseDSN == "" {
		t.Skipf("%s is not set", databaseDSNEnv)
	}

	db, err := New(
		context.Background(),
		databaseDSN,
		5*time.Second,
		WithDBPreReset(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})

	return db
}

func TestIDToText(t *testing.T) {
	id := objectid.New()

	text, kind, ok := idToText(id)
	assert.True(t, ok)
	assert.Equal(t, id.Hex(), text)
	assert.Equal(t, idKindObjectID, kind)

	text, kind, ok = idToText("custom")
	assert.True(t, ok)
	assert.Equal(t, "custom", text)
	assert.Equal(t, idKindString, kind)

	_, _, ok = idToText(42)
	assert.False(t, ok)
}

func TestDecodeRow(t *testing.T) {
	id := objectid.New()

	document, err := decodeRow(id.Hex(), idKindObjectID, `{"email":"a@x.com","n":1}`)
	require.NoError(t, err)
	assert.Equal(t, id, document[models.IDField])
	assert.Equal(t, "a@x.com", document["email"])
	assert.Equal(t, float64(1), document["n"])

	document, err = decodeRow("custom", idKindString, `{}`)
	require.NoError(t, err)
	assert.Equal(t, "custom", document[models.IDField])

	document, err = decodeRow(id.Hex(), idKindString, `{}`)
	require.NoError(t, err)
	assert.Equal(t, id.Hex(), document[models.IDField], "A hex string _id should stay a string")

	_, err = decodeRow("custom", idKindObjectID, `{}`)
	assert.Error(t, err)

	_, err = decodeRow("custom", idKindString, `{broken`)
	assert.Error(t, err)
}

func TestNewClosesPoolWhenMigrationFails(t *testing.T) {
	databaseDSN := os.Getenv(databaseDSNEnv)
	if databaseDSN == "" {
		t.Skipf("%s is not set", databaseDSNEnv)
	}

	errMigration := errors.New("migration failed")
	var migrated *sql.DB
	saved := applyMigrations
	applyMigrations = func(ctx context.Context, database *sql.DB) error {
		migrated = database
		return errMigration
	}
	t.Cleanup(func() {
		applyMigrations = saved
	})

	db, err := New(context.Background(), databaseDSN, 5*time.Second)
	require.ErrorIs(t, err, errMigration)
	assert.Nil(t, db)

	require.NotNil(t, migrated)
	assert.Error(t, migrated.PingContext(context.Background()), "The pool should be closed after a failed migration")
}

func TestRepositoryAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	require.NoError(t, db.Ping(ctx))

	users := db.Collection("users")
	subscribers := db.Collection("subscribers")

	stored, err := users.Insert(ctx, models.Document{"email": "a@x.com", "token": "t1", "b": float64(2)})
	require.NoError(t, err)
	id, ok := stored[models.IDField].(primitive.ObjectID)
	require.True(t, ok)

	found, ok, err := users.FindOne(ctx, models.Document{models.IDField: id})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stored, found, "Insert followed by FindOne should return the same document")

	_, ok, err = subscribers.FindOne(ctx, models.Document{models.IDField: id})
	require.NoError(t, err)
	assert.False(t, ok, "Collections must not see each other's documents")

	byToken, err := users.Find(ctx, models.Document{"token": "t1"})
	require.NoError(t, err)
	assert.Len(t, byToken, 1)

	matched, err := users.UpdateFields(ctx, id, models.Document{"a": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)

	found, _, err = users.FindOne(ctx, models.Document{models.IDField: id})
	require.NoError(t, err)
	assert.Equal(t, float64(1), found["a"])
	assert.Equal(t, float64(2), found["b"])

	_, err = users.UpdateFields(ctx, id, models.Document{models.IDField: "other"})
	assert.ErrorIs(t, err, models.ErrImmutableID)

	_, err = users.UpdateFields(ctx, id, models.Document{models.IDField: id.Hex()})
	assert.ErrorIs(t, err, models.ErrImmutableID, "A string _id is not the same id as the ObjectID")

	matched, err = users.UpdateFields(ctx, id, models.Document{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched, "An empty update still reports the match")

	stringIDs := db.Collection("string_ids")
	hexString := objectid.New().Hex()
	_, err = stringIDs.Insert(ctx, models.Document{models.IDField: hexString, "name": "string id"})
	require.NoError(t, err)
	byStringID, ok, err := stringIDs.FindOne(ctx, models.Document{models.IDField: hexString})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hexString, byStringID[models.IDField], "A hex string _id should come back as a string")
	sameHex, err := objectid.Decode(hexString)
	require.NoError(t, err)
	_, ok, err = stringIDs.FindOne(ctx, models.Document{models.IDField: sameHex})
	require.NoError(t, err)
	assert.False(t, ok, "An ObjectID must not match a string _id with the same hex")

	matched, err = users.UpdateFields(ctx, objectid.New(), models.Document{"a": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), matched)

	_, err = subscribers.Insert(ctx, models.Document{"name": "first"})
	require.NoError(t, err)
	_, err = subscribers.Insert(ctx, models.Document{"name": "second"})
	require.NoError(t, err)
	all, err := subscribers.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0]["name"])

	deleted, err := users.DeleteByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = users.DeleteByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
