package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one generic result row keyed by column name.
// Lookups ignore case and surrounding double quotes, since SHOW and DESCRIBE output
// headers vary between quoted and unquoted spellings.
type Row map[string]any

func normalizeColumn(name string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(name), `"`))
}

// Value returns the raw value of column name.
func (r Row) Value(name string) (any, bool) {
	want := normalizeColumn(name)
	for k, v := range r {
		if normalizeColumn(k) == want {
			return v, true
		}
	}
	return nil, false
}

// Text renders column name as text. Missing and NULL columns are empty.
func (r Row) Text(name string) string {
	v, ok := r.Value(name)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}

// Bool interprets column name as a flag. Snowflake reports these as "true", "Y", or "ON".
func (r Row) Bool(name string) bool {
	v, ok := r.Value(name)
	if !ok || v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	switch strings.ToUpper(strings.TrimSpace(r.Text(name))) {
	case "TRUE", "T", "Y", "YES", "ON", "1":
		return true
	}
	return false
}

// Int64 interprets column name as an integer, zero when missing or unparsable.
func (r Row) Int64(name string) int64 {
	v, ok := r.Value(name)
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	case float64:
		return int64(t)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(r.Text(name)), 64)
	if err != nil {
		return 0
	}
	return int64(n)
}

// Querier is the subset of *sql.DB the admin helpers need.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// QueryRows runs stmt and returns every row as a Row.
func QueryRows(ctx context.Context, q Querier, stmt string, args ...any) ([]Row, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []Row
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// QueryRows runs stmt on the store's connection with the query timeout applied.
func (s *Store) QueryRows(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	return QueryRows(ctx, s.db, stmt, args...)
}

// Exec runs a statement with the query timeout applied.
func (s *Store) Exec(ctx context.Context, stmt string, args ...any) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	_, err := s.db.ExecContext(ctx, stmt, args...)
	return err
}
