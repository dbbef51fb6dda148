package duckdb

import (
	"context"
	"fmt"

	"github.com/tinytelemetry/logsearch/internal/admin"
	"github.com/tinytelemetry/logsearch/internal/model"
)

// LocalAdmin emulates search optimization and warehouse sizing with bookkeeping tables,
// so the admin panels behave the same without a Snowflake account.
// A newly enabled index reports as active immediately.
type LocalAdmin struct {
	store     *Store
	column    string
	warehouse string
}

var (
	_ model.IndexAdmin   = (*LocalAdmin)(nil)
	_ model.ComputeAdmin = (*LocalAdmin)(nil)
)

// NewLocalAdmin returns the admin emulation for the local log table.
func NewLocalAdmin(store *Store, column, warehouse string) *LocalAdmin {
	if column == "" {
		column = model.DefaultIndexedColumn
	}
	if warehouse == "" {
		warehouse = model.DefaultWarehouseName
	}
	return &LocalAdmin{store: store, column: column, warehouse: warehouse}
}

// IndexStatus lists the emulated search optimization entries.
func (a *LocalAdmin) IndexStatus(ctx context.Context) (model.IndexStatus, error) {
	rows, err := a.store.QueryRows(ctx,
		"SELECT method, target, active FROM search_optimization WHERE target_table = ? ORDER BY method, target",
		LogTable)
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

// EnableIndex records a full-text entry on the indexed column.
func (a *LocalAdmin) EnableIndex(ctx context.Context) error {
	target := fmt.Sprintf("%s(%s, ANALYZER => '%s')", admin.FullTextMethod, a.column, model.DefaultAnalyzer)
	return a.store.Exec(ctx,
		`INSERT INTO search_optimization (target_table, method, target, active) VALUES (?, ?, ?, true)
		ON CONFLICT DO NOTHING`,
		LogTable, admin.FullTextMethod, target)
}

// DisableIndex drops every entry for the log table.
func (a *LocalAdmin) DisableIndex(ctx context.Context) error {
	return a.store.Exec(ctx, "DELETE FROM search_optimization WHERE target_table = ?", LogTable)
}

// WarehouseName returns the emulated warehouse name.
func (a *LocalAdmin) WarehouseName() string {
	return a.warehouse
}

// CurrentSize returns the stored size label. A warehouse that was never resized
// reports the default size.
func (a *LocalAdmin) CurrentSize(ctx context.Context) (string, error) {
	rows, err := a.store.QueryRows(ctx, "SELECT size FROM warehouses WHERE name = ?", a.warehouse)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return model.DefaultWarehouseSize, nil
	}
	return rows[0].Text("size"), nil
}

// SetSize stores the label for code, creating the warehouse row if needed.
func (a *LocalAdmin) SetSize(ctx context.Context, code string) error {
	label, err := admin.SizeLabel(code)
	if err != nil {
		return err
	}
	return a.store.Exec(ctx,
		`INSERT INTO warehouses (name, size) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET size = excluded.size`,
		a.warehouse, label)
}
