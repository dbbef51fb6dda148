// Package duckdb is the local development backend: a DuckDB file (or in-memory database)
// holding the log table and emulating the warehouse admin surface.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/tinytelemetry/logsearch/internal/duckdb/migrate"
	"github.com/tinytelemetry/logsearch/internal/query"
	"github.com/tinytelemetry/logsearch/internal/warehouse"
)

// LogTable is the local log table created by the embedded migrations.
const LogTable = "logs"

// Store manages the DuckDB connection. Reads go through the embedded warehouse.Store.
type Store struct {
	*warehouse.Store

	db     *sql.DB
	mu     sync.Mutex
	dbPath string
	logger *zap.Logger
}

// NewStore opens or creates a DuckDB database and applies migrations.
// If dbPath is empty, an in-memory database is used.
func NewStore(ctx context.Context, dbPath string, logger *zap.Logger, queryTimeout time.Duration) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := ""
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if err := migrate.NewRunner(db).Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	reads, err := warehouse.NewStore(db, query.DuckDB{}, LogTable, logger, queryTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("local warehouse ready", zap.String("path", displayPath(dbPath)))
	return &Store{
		Store:  reads,
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}, nil
}

// SchemaState reports the applied migration version of the local database.
func (s *Store) SchemaState(ctx context.Context) (migrate.State, error) {
	return migrate.NewRunner(s.db).Status(ctx)
}

func displayPath(p string) string {
	if p == "" {
		return ":memory:"
	}
	return p
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the configured path. Empty means in-memory.
func (s *Store) DBPath() string {
	return s.dbPath
}
