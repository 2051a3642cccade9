package store

import (
	"context"
	"fmt"

	"github.com/yourusername/banker-pool/internal/config"
	"github.com/yourusername/banker-pool/internal/database"
)

// Open builds the backend selected by storage.backend.
// db is only consulted for the postgres backend and may be nil otherwise.
// The returned close function releases backend resources and is always non-nil.
func Open(ctx context.Context, cfg *config.Config, db *database.DB) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return Instrument(NewMemoryStore(), config.BackendMemory), noop, nil

	case config.BackendFile:
		fs, err := NewFileStore(cfg.Storage.FilePath)
		if err != nil {
			return nil, noop, err
		}
		return Instrument(fs, config.BackendFile), noop, nil

	case config.BackendSQLite:
		ss, err := NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return Instrument(ss, config.BackendSQLite), ss.Close, nil

	case config.BackendPostgres:
		if db == nil {
			return nil, noop, fmt.Errorf("postgres storage requires a database connection")
		}
		ps, err := NewPostgresStore(ctx, db.GetPool())
		if err != nil {
			return nil, noop, err
		}
		return Instrument(ps, config.BackendPostgres), noop, nil

	case config.BackendS3:
		s3s, err := NewS3StoreFromConfig(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, noop, err
		}
		return Instrument(s3s, config.BackendS3), noop, nil
	}

	return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
