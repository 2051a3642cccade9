// Package app wires configuration into the pool's services. Both binaries share it.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/catalog"
	"github.com/yourusername/banker-pool/internal/config"
	"github.com/yourusername/banker-pool/internal/database"
	"github.com/yourusername/banker-pool/internal/leaderboard"
	"github.com/yourusername/banker-pool/internal/lock"
	"github.com/yourusername/banker-pool/internal/raceday"
	"github.com/yourusername/banker-pool/internal/repository"
	"github.com/yourusername/banker-pool/internal/scoring"
	"github.com/yourusername/banker-pool/internal/store"
)

// App holds the wired services and the resources they share
type App struct {
	DB          *database.DB
	Store       store.Store
	Days        *raceday.Service
	Leaderboard *leaderboard.Service
	Reconciler  *leaderboard.Reconciler
	Catalog     catalog.Source

	closeStore func() error
	logger     *logrus.Logger
}

// New opens the database (when needed), the store and the lock backend, then builds the services
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	backing, closeStore, err := store.Open(ctx, cfg, db)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}

	snapshot := store.NewSnapshotStore(backing, cfg.SnapshotTTL())
	writes := repository.NewRepositories(snapshot.Fresh())
	reads := repository.NewRepositories(snapshot)

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Locking.Backend == "postgres" {
		locker = lock.NewPostgresAdvisoryLocker(db.GetPool(), log)
	}

	engine := scoring.NewEngine(log)
	a := &App{
		DB:          db,
		Store:       backing,
		Days:        raceday.NewService(writes, reads, locker, engine, log),
		Leaderboard: leaderboard.NewService(reads, engine, log),
		Reconciler:  leaderboard.NewReconciler(reads, writes, locker, log),
		closeStore:  closeStore,
		logger:      log,
	}

	if cfg.Catalog.Enabled {
		src, err := catalog.New(cfg.Catalog, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to build race catalog: %w", err)
		}
		a.Catalog = src
	}

	log.WithFields(logrus.Fields{
		"storage": cfg.Storage.Backend,
		"locking": cfg.Locking.Backend,
		"catalog": cfg.Catalog.Enabled,
	}).Info("Pool services initialized")
	return a, nil
}

// Close releases the store and the database pool
func (a *App) Close() {
	if err := a.closeStore(); err != nil {
		a.logger.WithError(err).Error("Failed to close store")
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
