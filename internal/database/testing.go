package database

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/yourusername/banker-pool/internal/config"
)

// TestDatabaseHostEnv names the variable that enables PostgreSQL-backed tests
const TestDatabaseHostEnv = "BANKER_POOL_TEST_DB_HOST"

// SetupTestDB connects to the test database described by BANKER_POOL_TEST_DB_* variables,
// skipping the test when none is configured
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	host := os.Getenv(TestDatabaseHostEnv)
	if host == "" {
		t.Skipf("%s not set, skipping PostgreSQL test", TestDatabaseHostEnv)
	}

	port, err := strconv.Atoi(envOr("BANKER_POOL_TEST_DB_PORT", "5432"))
	if err != nil {
		t.Fatalf("invalid BANKER_POOL_TEST_DB_PORT: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDB(ctx, &config.DatabaseConfig{
		Host:           host,
		Port:           port,
		Name:           envOr("BANKER_POOL_TEST_DB_NAME", "banker_pool_test"),
		User:           envOr("BANKER_POOL_TEST_DB_USER", "postgres"),
		Password:       os.Getenv("BANKER_POOL_TEST_DB_PASSWORD"),
		SSLMode:        "disable",
		MaxConnections: 4,
	})
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
