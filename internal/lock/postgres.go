package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const unlockTimeout = 5 * time.Second

// PostgresAdvisoryLocker serializes a key across every process sharing the database.
// Each held lock pins one pooled connection, since advisory locks belong to the session.
type PostgresAdvisoryLocker struct {
	pool   *pgxpool.Pool
	logger *logrus.Entry
}

// NewPostgresAdvisoryLocker creates a locker over the given pool
func NewPostgresAdvisoryLocker(pool *pgxpool.Pool, logger *logrus.Logger) *PostgresAdvisoryLocker {
	return &PostgresAdvisoryLocker{
		pool:   pool,
		logger: logger.WithField("component", "lock"),
	}
}

func (p *PostgresAdvisoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for lock %s: %w", key, err)
	}

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, key); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to take advisory lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
			defer cancel()
			if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock(hashtext($1))`, key); err != nil {
				// A broken session releases its advisory locks when it closes.
				p.logger.WithError(err).WithField("key", key).Error("Failed to release advisory lock, closing connection")
				conn.Conn().Close(unlockCtx)
			}
			conn.Release()
		})
	}, nil
}
