// Package postgresdb stores the document collections in a single PostgreSQL table,
// one JSONB body per document, keyed by (collection, id).
// Schema migrations are embedded and applied with goose on startup.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/fenix/internal/models"
	"github.com/patric-chuzhbe/fenix/internal/objectid"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrUnsupportedID is returned when a document carries an _id that is neither an ObjectID nor a string.
var ErrUnsupportedID = errors.New("unsupported _id type")

// PostgresDB owns the connection pool shared by every collection.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

// Collection implements storage.Repository over the rows of one collection.
type Collection struct {
	database *sql.DB
	name     string
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops the schema before migrating. Intended for tests.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New opens the database, checks connectivity and applies the embedded migrations.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w",
				err,
			)
	}

	if err := result.prepare(ctx, options); err != nil {
		_ = database.Close()
		return nil, err
	}

	return result, nil
}

// applyMigrations brings the schema up to date. Tests replace it to simulate a failing migration.
var applyMigrations = func(ctx context.Context, database *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/applyMigrations(): error while `goose.SetDialect()` calling: %w",
			err,
		)
	}

	if err := goose.UpContext(ctx, database, "migrations"); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/applyMigrations(): error while `goose.UpContext()` calling: %w",
			err,
		)
	}

	return nil
}

func (db *PostgresDB) prepare(ctx context.Context, options *initOptions) error {
	if options.DBPreReset {
		if err := db.resetDB(ctx); err != nil {
			return fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/prepare(): error while `db.resetDB()` calling: %w",
				err,
			)
		}
	}

	return applyMigrations(ctx, db.database)
}

// Collection returns the repository for the named collection.
func (db *PostgresDB) Collection(name string) *Collection {
	return &Collection{
		database: db.database,
		name:     name,
	}
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DROP TABLE IF EXISTS documents;
			DROP TABLE IF EXISTS goose_db_version;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}

	return nil
}

func (c *Collection) Find(ctx context.Context, filter models.Document) ([]models.Document, error) {
	query := `SELECT id, id_kind, body::text FROM documents WHERE collection = $1`
	args := []any{c.name}

	if idValue, ok := filter[models.IDField]; ok {
		id, kind, ok := idToText(idValue)
		if !ok {
			return []models.Document{}, nil
		}
		args = append(args, id, kind)
		query += fmt.Sprintf(` AND id = $%d AND id_kind = $%d`, len(args)-1, len(args))
	}

	if rest := filter.WithoutID(); len(rest) > 0 {
		containment, err := json.Marshal(rest)
		if err != nil {
			return nil, models.NewStoreError("find", c.name, err)
		}
		args = append(args, string(containment))
		query += fmt.Sprintf(` AND body @> $%d::jsonb`, len(args))
	}

	query += ` ORDER BY seq`

	rows, err := c.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.NewStoreError("find", c.name, err)
	}
	defer rows.Close()

	result := []models.Document{}
	for rows.Next() {
		var id, kind, body string
		if err := rows.Scan(&id, &kind, &body); err != nil {
			return nil, models.NewStoreError("find", c.name, err)
		}

		document, err := decodeRow(id, kind, body)
		if err != nil {
			return nil, models.NewStoreError("find", c.name, err)
		}
		result = append(result, document)
	}

	if err := rows.Err(); err != nil {
		return nil, models.NewStoreError("find", c.name, err)
	}

	return result, nil
}

func (c *Collection) FindOne(ctx context.Context, filter models.Document) (models.Document, bool, error) {
	found, err := c.Find(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	if len(found) == 0 {
		return nil, false, nil
	}

	return found[0], true, nil
}

func (c *Collection) FindAll(ctx context.Context) ([]models.Document, error) {
	return c.Find(ctx, nil)
}

func (c *Collection) Insert(ctx context.Context, document models.Document) (models.Document, error) {
	stored := document.Clone()
	idValue, hasID := stored[models.IDField]
	if !hasID {
		idValue = objectid.New()
		stored[models.IDField] = idValue
	}

	id, kind, ok := idToText(idValue)
	if !ok {
		return nil, models.NewStoreError("insert", c.name, ErrUnsupportedID)
	}

	body, err := json.Marshal(document.WithoutID())
	if err != nil {
		return nil, models.NewStoreError("insert", c.name, err)
	}

	_, err = c.database.ExecContext(
		ctx,
		`INSERT INTO documents (collection, id, id_kind, body) VALUES ($1, $2, $3, $4::jsonb)`,
		c.name,
		id,
		kind,
		string(body),
	)
	if err != nil {
		return nil, models.NewStoreError("insert", c.name, err)
	}

	return stored, nil
}

func (c *Collection) UpdateFields(
	ctx context.Context,
	id primitive.ObjectID,
	fields models.Document,
) (int64, error) {
	if newID, ok := fields[models.IDField]; ok {
		if text, kind, ok := idToText(newID); !ok || kind != idKindObjectID || text != id.Hex() {
			return 0, models.NewStoreError("update", c.name, models.ErrImmutableID)
		}
	}

	body, err := json.Marshal(fields.WithoutID())
	if err != nil {
		return 0, models.NewStoreError("update", c.name, err)
	}

	result, err := c.database.ExecContext(
		ctx,
		`
			UPDATE documents
				SET body = body || $3::jsonb,
					updated_at = now()
				WHERE collection = $1
					AND id = $2
					AND id_kind = 'objectid'
		`,
		c.name,
		id.Hex(),
		string(body),
	)
	if err != nil {
		return 0, models.NewStoreError("update", c.name, err)
	}

	matched, err := result.RowsAffected()
	if err != nil {
		return 0, models.NewStoreError("update", c.name, err)
	}

	return matched, nil
}

func (c *Collection) DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error) {
	result, err := c.database.ExecContext(
		ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2 AND id_kind = 'objectid'`,
		c.name,
		id.Hex(),
	)
	if err != nil {
		return 0, models.NewStoreError("delete", c.name, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, models.NewStoreError("delete", c.name, err)
	}

	return deleted, nil
}

// Values of the id_kind column.
const (
	idKindObjectID = "objectid"
	idKindString   = "string"
)

func idToText(value any) (string, string, bool) {
	switch id := value.(type) {
	case primitive.ObjectID:
		return id.Hex(), idKindObjectID, true
	case string:
		return id, idKindString, true
	}

	return "", "", false
}

func decodeRow(id, kind, body string) (models.Document, error) {
	document := models.Document{}
	if err := json.Unmarshal([]byte(body), &document); err != nil {
		return nil, err
	}

	document[models.IDField] = id
	if kind == idKindObjectID {
		oid, err := objectid.Decode(id)
		if err != nil {
			return nil, err
		}
		document[models.IDField] = oid
	}

	return document, nil
}
