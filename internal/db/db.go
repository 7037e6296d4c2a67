package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Database wraps the sqlx handle together with the driver it was opened with
type Database struct {
	DB     *sqlx.DB
	Driver string
}

// Config represents database configuration
type Config struct {
	Driver string
	URL    string
}

// Open connects to the database and runs the schema migrations
func Open(ctx context.Context, config Config) (*Database, error) {
	dsn := config.URL

	switch config.Driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}

	conn, err := sqlx.ConnectContext(ctx, config.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A single writer keeps SQLite from returning SQLITE_BUSY under the poller
	if config.Driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
	}

	database := &Database{DB: conn, Driver: config.Driver}
	if err := database.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed creating schema resources: %w", err)
	}

	return database, nil
}

func (d *Database) migrate(ctx context.Context) error {
	for _, stmt := range migrations(d.Driver) {
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func migrations(driver string) []string {
	bigint, boolean := "INTEGER", "INTEGER"
	if driver == DriverPostgres {
		bigint, boolean = "BIGINT", "BOOLEAN"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS quota (
			id INTEGER PRIMARY KEY,
			limit_bytes ` + bigint + ` NOT NULL,
			expiry_time_ms ` + bigint + ` NOT NULL,
			enabled ` + boolean + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS data_usage (
			id INTEGER PRIMARY KEY,
			total_bytes_used ` + bigint + ` NOT NULL,
			last_reset_time_ms ` + bigint + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS traffic_buckets (
			iface TEXT NOT NULL,
			bucket_start_ms ` + bigint + ` NOT NULL,
			rx_bytes ` + bigint + ` NOT NULL DEFAULT 0,
			tx_bytes ` + bigint + ` NOT NULL DEFAULT 0,
			PRIMARY KEY (iface, bucket_start_ms)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_traffic_buckets_start ON traffic_buckets(bucket_start_ms)`,
	}
}

// Close closes the underlying connection pool
func (d *Database) Close() error {
	return d.DB.Close()
}
