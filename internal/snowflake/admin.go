package snowflake

import (
	"context"
	"fmt"
	"strings"

	"github.com/tinytelemetry/logsearch/internal/admin"
	"github.com/tinytelemetry/logsearch/internal/model"
	"github.com/tinytelemetry/logsearch/internal/query"
	"github.com/tinytelemetry/logsearch/internal/warehouse"
)

// Runner executes statements. *warehouse.Store satisfies it.
type Runner interface {
	QueryRows(ctx context.Context, stmt string, args ...any) ([]warehouse.Row, error)
	Exec(ctx context.Context, stmt string, args ...any) error
}

// Admin issues the search optimization and warehouse statements.
type Admin struct {
	db        Runner
	table     string
	column    string
	analyzer  string
	warehouse string
}

var (
	_ model.IndexAdmin   = (*Admin)(nil)
	_ model.ComputeAdmin = (*Admin)(nil)
)

// NewAdmin validates the object names that are spliced into admin statements.
func NewAdmin(db Runner, table, column, analyzer, warehouseName string) (*Admin, error) {
	if column == "" {
		column = model.DefaultIndexedColumn
	}
	if analyzer == "" {
		analyzer = model.DefaultAnalyzer
	}
	if warehouseName == "" {
		warehouseName = model.DefaultWarehouseName
	}
	for _, name := range []string{table, column, analyzer, warehouseName} {
		if !query.ValidIdentifier(name) {
			return nil, fmt.Errorf("invalid identifier %q", name)
		}
	}
	return &Admin{db: db, table: table, column: column, analyzer: analyzer, warehouse: warehouseName}, nil
}

// IndexStatus runs DESCRIBE SEARCH OPTIMIZATION on the log table.
func (a *Admin) IndexStatus(ctx context.Context) (model.IndexStatus, error) {
	rows, err := a.db.QueryRows(ctx, "DESCRIBE SEARCH OPTIMIZATION ON "+a.table)
	if err != nil {
		return model.IndexStatus{}, err
	}
	st := model.IndexStatus{Entries: []model.IndexEntry{}}
	for _, r := range rows {
		st.Entries = append(st.Entries, model.IndexEntry{
			Method: r.Text("method"),
			Target: r.Text("target"),
			Active: r.Bool("active"),
		})
	}
	return st, nil
}

// EnableIndex adds full-text search optimization on the indexed column.
func (a *Admin) EnableIndex(ctx context.Context) error {
	return a.db.Exec(ctx, fmt.Sprintf(
		"ALTER TABLE %s ADD SEARCH OPTIMIZATION ON FULL_TEXT(%s, ANALYZER => '%s')",
		a.table, a.column, a.analyzer))
}

// DisableIndex drops all search optimization from the log table.
func (a *Admin) DisableIndex(ctx context.Context) error {
	return a.db.Exec(ctx, fmt.Sprintf("ALTER TABLE %s DROP SEARCH OPTIMIZATION", a.table))
}

// WarehouseName returns the administered warehouse.
func (a *Admin) WarehouseName() string {
	return a.warehouse
}

// CurrentSize reads the size label from SHOW WAREHOUSES.
func (a *Admin) CurrentSize(ctx context.Context) (string, error) {
	rows, err := a.db.QueryRows(ctx, fmt.Sprintf("SHOW WAREHOUSES LIKE '%s'", likeLiteral(a.warehouse)))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%s: %w", a.warehouse, model.ErrWarehouseNotFound)
	}
	size := rows[0].Text("size")
	if size == "" {
		return "Unknown", nil
	}
	return size, nil
}

// SetSize resizes the warehouse. code must be one of the ALTER WAREHOUSE size codes.
func (a *Admin) SetSize(ctx context.Context, code string) error {
	code, err := admin.NormalizeSizeCode(code)
	if err != nil {
		return err
	}
	return a.db.Exec(ctx, fmt.Sprintf("ALTER WAREHOUSE %s SET WAREHOUSE_SIZE = '%s'", a.warehouse, code))
}

func likeLiteral(name string) string {
	return strings.ReplaceAll(name, "'", "''")
}
