package duckdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tinytelemetry/logsearch/internal/logparse"
	"github.com/tinytelemetry/logsearch/internal/model"
)

// InsertLogBatch writes records in a single transaction. Records without an id get a
// random one; ids already present are skipped.
func (s *Store) InsertLogBatch(ctx context.Context, records []model.LogRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO logs
		(LOG_ID, TIMESTAMP, SEVERITY, SOURCE, HOST, MESSAGE) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		id := r.LogID
		if id == "" {
			id = uuid.NewString()
		}
		res, err := stmt.ExecContext(ctx, id, r.Timestamp.UTC(), logparse.NormalizeSeverity(r.Severity), r.Source, r.Host, r.Message)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return inserted, nil
}
