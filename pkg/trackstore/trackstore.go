// Package trackstore persists activities in a SQL database so renders
// do not depend on a pile of loose JSON files.  It speaks several
// engines through database/sql: pure-Go SQLite for the default
// zero-setup path, Chai, Genji and DuckDB for people who already
// standardized on them, PostgreSQL for shared storage.
package trackstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store wraps the SQL connection together with the ID generator.
type Store struct {
	DB          *sql.DB
	Driver      string     // normalized driver name so SQL builders can stay declarative
	idGenerator chan int64 // channel for generating unique row IDs
	logf        func(string, ...any)
}

// Config holds the connection details for opening the store.
type Config struct {
	DBType    string // driver name: "sqlite", "chai", "genji", "duckdb" or "pgx"
	DBPath    string // file path for file-based engines
	DBConn    string // raw DSN for network drivers, overrides the field-by-field form
	DBHost    string // PostgreSQL host
	DBPort    int    // PostgreSQL port
	DBUser    string // PostgreSQL user
	DBPass    string // PostgreSQL password
	DBName    string // PostgreSQL database name
	PGSSLMode string // PostgreSQL SSL mode
}

// normalizeDBType trims and lowercases driver names so the switch
// blocks below do not miss an engine because a caller passed mixed case
// or incidental whitespace.
func normalizeDBType(dbType string) string {
	return strings.ToLower(strings.TrimSpace(dbType))
}

// DSN assembles the connection string for the configured engine.
// File-based engines default to a local file named after the driver so
// the first run needs no flags at all.
func (cfg Config) DSN() (string, error) {
	switch driver := normalizeDBType(cfg.DBType); driver {
	case "sqlite", "chai", "genji", "duckdb":
		if cfg.DBPath != "" {
			return cfg.DBPath, nil
		}
		return "activities." + driver, nil
	case "pgx":
		if trimmed := strings.TrimSpace(cfg.DBConn); trimmed != "" {
			return trimmed, nil
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.PGSSLMode), nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}
}

// startIDGenerator launches a goroutine for generating unique IDs.
func startIDGenerator(initialID int64) chan int64 {
	idChannel := make(chan int64)
	go func(start int64) {
		currentID := start
		for {
			idChannel <- currentID
			currentID++
		}
	}(initialID)
	return idChannel
}

// Open connects, tunes the connection pool for the engine and prepares
// the schema.  SQLite-family engines get a single physical connection
// since concurrent writers only buy lock contention there.
func Open(cfg Config, logf func(string, ...any)) (*Store, error) {
	driver := normalizeDBType(cfg.DBType)
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	switch driver {
	case "sqlite", "chai", "genji", "duckdb":
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		if driver == "sqlite" {
			tuneCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := tuneSQLiteConnection(tuneCtx, db, logf); err != nil {
				logf("sqlite tuning skipped: %v", err)
			}
			cancel()
		}
	case "pgx":
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	// Liveness probe with a timeout so startup cannot hang on a dead
	// database.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
	}

	logf("using database driver %s with DSN %s", driver, dsn)

	s := &Store{DB: db, Driver: driver, logf: logf}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Seed the ID generator from the highest existing row so restarts
	// keep handing out unique primary keys.  A missing table is fine,
	// initSchema just created it.
	var maxID sql.NullInt64
	_ = db.QueryRow(`SELECT MAX(id) FROM activities`).Scan(&maxID)
	initialID := int64(1)
	if maxID.Valid && maxID.Int64 >= initialID {
		initialID = maxID.Int64 + 1
	}
	s.idGenerator = startIDGenerator(initialID)
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.DB.Close() }

// initSchema creates the activities table for the active engine.  The
// UNIQUE constraint on activity_id is what makes re-imports idempotent.
func (s *Store) initSchema() error {
	var schema string
	switch s.Driver {
	case "pgx":
		schema = `
CREATE TABLE IF NOT EXISTS activities (
  id          BIGINT PRIMARY KEY,
  activity_id TEXT NOT NULL,
  name        TEXT,
  category    TEXT,
  start_date  TEXT,
  points      TEXT NOT NULL,
  point_count INTEGER NOT NULL,
  imported_at BIGINT NOT NULL,
  CONSTRAINT activities_unique UNIQUE (activity_id)
);`
	default:
		// SQLite, Chai and DuckDB all accept the portable form.
		schema = `
CREATE TABLE IF NOT EXISTS activities (
  id          INTEGER PRIMARY KEY,
  activity_id TEXT NOT NULL UNIQUE,
  name        TEXT,
  category    TEXT,
  start_date  TEXT,
  points      TEXT NOT NULL,
  point_count INTEGER NOT NULL,
  imported_at BIGINT NOT NULL
);`
	}
	if _, err := s.DB.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// placeholder formats the n-th parameter marker for the active engine:
// PostgreSQL wants dollar numbering, everyone else takes "?".
func (s *Store) placeholder(n int) string {
	if s.Driver == "pgx" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// tuneSQLiteConnection applies WAL/synchronous/busy pragmas.  The steps
// run through a small channel pipeline so the work happens off the
// caller goroutine.
func tuneSQLiteConnection(ctx context.Context, db *sql.DB, logf func(string, ...any)) error {
	type pragma struct {
		label     string
		query     string
		expectRow bool
	}

	steps := []pragma{
		{label: "journal_mode", query: "PRAGMA journal_mode=WAL;", expectRow: true},
		{label: "synchronous", query: "PRAGMA synchronous=NORMAL;"},
		{label: "busy_timeout", query: "PRAGMA busy_timeout=5000;"},
	}

	jobs := make(chan pragma)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		for step := range jobs {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			default:
			}

			if step.expectRow {
				var mode string
				if err := db.QueryRowContext(ctx, step.query).Scan(&mode); err != nil {
					errs <- fmt.Errorf("apply %s: %w", step.label, err)
					return
				}
				logf("sqlite tuning %s -> %s", step.label, mode)
				continue
			}

			if _, err := db.ExecContext(ctx, step.query); err != nil {
				errs <- fmt.Errorf("apply %s: %w", step.label, err)
				return
			}
		}
		errs <- nil
	}()

	go func() {
		defer close(jobs)
		for _, step := range steps {
			jobs <- step
		}
	}()

	return <-errs
}
