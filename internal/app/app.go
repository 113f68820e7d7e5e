// Package app initializes and runs the users and subscribers service.
// It configures logging, picks the document store, builds the router
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/fenix/internal/config"
	"github.com/patric-chuzhbe/fenix/internal/db/memorystorage"
	"github.com/patric-chuzhbe/fenix/internal/db/mongodb"
	"github.com/patric-chuzhbe/fenix/internal/db/postgresdb"
	"github.com/patric-chuzhbe/fenix/internal/db/storage"
	"github.com/patric-chuzhbe/fenix/internal/logger"
	"github.com/patric-chuzhbe/fenix/internal/models"
	"github.com/patric-chuzhbe/fenix/internal/router"
)

const shutdownTimeout = 10 * time.Second

type database interface {
	Ping(ctx context.Context) error
	Close() error
}

// documentStore is a connected backend together with the two collections the service works on.
type documentStore struct {
	db          database
	users       storage.Repository
	subscribers storage.Repository
}

// App encapsulates the configuration, the document store and the HTTP handler.
type App struct {
	cfg         *config.Config
	store       *documentStore
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - connecting the document store
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.store, err = getStorageByType(context.Background(), app.cfg)
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(app.store.users, app.store.subscribers, app.store.db)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and closes the store upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow(
		"server running",
		"RunAddr", a.cfg.RunAddr,
		"users", a.cfg.UsersCollection,
		"subscribers", a.cfg.SubscribersCollection,
	)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing the store and exiting...")

		return shutdown(server, a.store.db)

	case err := <-serverErrCh:
		if closeErr := a.store.db.Close(); closeErr != nil {
			logger.Log.Errorw("unable to close the store", zap.Error(closeErr))
		}
		return fmt.Errorf("server error: %w", err)
	}
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdown stops the server and closes the store even when the server does not stop in time.
func shutdown(server shutdowner, db database) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := server.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("server shutdown error: %w", err)
	}

	var closeErr error
	if err := db.Close(); err != nil {
		closeErr = fmt.Errorf("store close error: %w", err)
	}

	return errors.Join(shutdownErr, closeErr)
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.MongoURI != "" {
		return models.StorageTypeMongo
	}

	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	return models.StorageTypeMemory
}

func getStorageByType(ctx context.Context, cfg *config.Config) (*documentStore, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypeMongo:
		logger.Log.Infow("using MongoDB", "database", cfg.DBName)
		client, err := mongodb.New(ctx, cfg.MongoURI, cfg.DBName, cfg.DBConnectionTimeout)
		if err != nil {
			return nil, err
		}
		return &documentStore{
			db:          client,
			users:       client.Collection(cfg.UsersCollection),
			subscribers: client.Collection(cfg.SubscribersCollection),
		}, nil

	case models.StorageTypePostgresql:
		logger.Log.Infow("using PostgreSQL")
		db, err := postgresdb.New(ctx, cfg.DatabaseDSN, cfg.DBConnectionTimeout)
		if err != nil {
			return nil, err
		}
		return &documentStore{
			db:          db,
			users:       db.Collection(cfg.UsersCollection),
			subscribers: db.Collection(cfg.SubscribersCollection),
		}, nil
	}

	logger.Log.Warnw("no database configured, documents are kept in memory")
	db, err := memorystorage.New()
	if err != nil {
		return nil, err
	}

	return &documentStore{
		db:          db,
		users:       db.Collection(cfg.UsersCollection),
		subscribers: db.Collection(cfg.SubscribersCollection),
	}, nil
}
