// Package warehouse runs the log table reads shared by the Snowflake and local backends.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/logsearch/internal/logparse"
	"github.com/tinytelemetry/logsearch/internal/model"
	"github.com/tinytelemetry/logsearch/internal/query"
)

// Store issues keyword page reads against one log table through a SQL dialect.
type Store struct {
	db           *sql.DB
	dialect      query.Dialect
	table        string
	logger       *zap.Logger
	QueryTimeout time.Duration
}

var _ model.LogSearcher = (*Store)(nil)

// NewStore wraps an open connection. A zero queryTimeout selects the default.
func NewStore(db *sql.DB, dialect query.Dialect, table string, logger *zap.Logger, queryTimeout time.Duration) (*Store, error) {
	if !query.ValidIdentifier(table) {
		return nil, fmt.Errorf("invalid log table name %q", table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if queryTimeout <= 0 {
		queryTimeout = model.DefaultQueryTimeout
	}
	return &Store{
		db:           db,
		dialect:      dialect,
		table:        table,
		logger:       logger,
		QueryTimeout: queryTimeout,
	}, nil
}

// queryCtx bounds ctx with the store's query timeout.
func (s *Store) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.QueryTimeout)
}

// SearchLogs runs the keyword search.
func (s *Store) SearchLogs(ctx context.Context, q model.KeywordQuery, sourceUniverse []string) ([]model.LogRecord, error) {
	stmt, args, err := query.BuildKeywordQuery(s.dialect, s.table, q, sourceUniverse)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("keyword search",
		zap.String("dialect", s.dialect.Name()),
		zap.String("mode", string(q.Mode)),
		zap.Int("args", len(args)))
	return s.readLogs(ctx, "SearchLogs", stmt, args...)
}

// PreviewLogs returns the latest rows of the table.
func (s *Store) PreviewLogs(ctx context.Context, limit int) ([]model.LogRecord, error) {
	stmt, err := query.PreviewQuery(s.table, limit)
	if err != nil {
		return nil, err
	}
	return s.readLogs(ctx, "PreviewLogs", stmt)
}

// DistinctSources returns the source universe.
func (s *Store) DistinctSources(ctx context.Context) ([]string, error) {
	stmt, err := query.DistinctSourcesQuery(s.table)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("distinct sources: %w", err)
	}
	defer rows.Close()

	sources := []string{}
	for rows.Next() {
		var src sql.NullString
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("distinct sources: scan row: %w", err)
		}
		if src.Valid && src.String != "" {
			sources = append(sources, src.String)
		}
	}
	return sources, rows.Err()
}

// TotalLogCount returns the number of rows in the table.
func (s *Store) TotalLogCount(ctx context.Context) (int64, error) {
	stmt, err := query.TotalCountQuery(s.table)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var count int64
	if err := s.db.QueryRowContext(ctx, stmt).Scan(&count); err != nil {
		return 0, fmt.Errorf("total log count: %w", err)
	}
	return count, nil
}

func (s *Store) readLogs(ctx context.Context, name, stmt string, args ...any) ([]model.LogRecord, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer rows.Close()

	records := []model.LogRecord{}
	for rows.Next() {
		var (
			id, sev, src, host, msg sql.NullString
			ts                      sql.NullTime
		)
		if err := rows.Scan(&id, &ts, &sev, &src, &host, &msg); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", name, err)
		}
		records = append(records, model.LogRecord{
			LogID:     id.String,
			Timestamp: ts.Time,
			Severity:  logparse.NormalizeSeverity(sev.String),
			Source:    src.String,
			Host:      host.String,
			Message:   msg.String,
		})
	}
	return records, rows.Err()
}
