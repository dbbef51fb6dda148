package snowflake

import (
	"context"

	"github.com/tinytelemetry/logsearch/internal/warehouse"
)

type call struct {
	stmt string
	args []any
}

// fakeRunner records statements and answers queries from a canned table keyed by prefix.
type fakeRunner struct {
	calls   []call
	results map[string][]warehouse.Row
	err     error
}

func (f *fakeRunner) QueryRows(_ context.Context, stmt string, args ...any) ([]warehouse.Row, error) {
	f.calls = append(f.calls, call{stmt, args})
	if f.err != nil {
		return nil, f.err
	}
	for prefix, rows := range f.results {
		if len(stmt) >= len(prefix) && stmt[:len(prefix)] == prefix {
			return rows, nil
		}
	}
	return nil, nil
}

func (f *fakeRunner) Exec(_ context.Context, stmt string, args ...any) error {
	f.calls = append(f.calls, call{stmt, args})
	return f.err
}

func (f *fakeRunner) statements() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.stmt
	}
	return out
}
