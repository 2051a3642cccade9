package database

import (
	"context"

	"github.com/yourusername/banker-pool/internal/config"
)

// Initialize opens the pool when a component needs PostgreSQL and returns nil otherwise
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	if !cfg.NeedsDatabase() {
		return nil, nil
	}
	return NewDB(ctx, &cfg.Database)
}
