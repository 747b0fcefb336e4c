// Package storage selects and opens the ledger backend named in the config.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"invite-tracker-backend/internal/config"
	"invite-tracker-backend/internal/logger"
	"invite-tracker-backend/internal/repository"
	"invite-tracker-backend/internal/repository/filestore"
	"invite-tracker-backend/internal/repository/firestore"
	"invite-tracker-backend/internal/repository/memory"
	"invite-tracker-backend/internal/repository/postgres"
)

// Open returns a ready Store. The caller owns it and must Close it.
func Open(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Storage.Type {
	case config.StorageMemory:
		logger.Warn("Using in-memory storage; the ledger is lost on restart")
		return memory.NewStore(), nil

	case config.StorageFile:
		logger.Info("Using file storage", "path", cfg.Storage.FilePath)
		return filestore.Open(cfg.Storage.FilePath)

	case config.StoragePostgres:
		db := cfg.Storage.Database
		logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", db.User, db.Host, db.Port, db.Database))
		return openPostgres(ctx, "postgres", cfg.GetDatabaseConnectionString())

	case config.StorageFirestore:
		fs := cfg.Storage.Firestore
		client, err := firestore.Connect(ctx, fs.ProjectID, fs.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return firestore.NewStore(client, fs.CollectionPrefix), nil
	}
	return nil, fmt.Errorf("unsupported storage type %q", cfg.Storage.Type)
}

func openPostgres(ctx context.Context, driver, dsn string) (repository.Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return store, nil
}
