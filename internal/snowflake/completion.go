package snowflake

import (
	"context"
	"fmt"
	"strings"

	"github.com/tinytelemetry/logsearch/internal/model"
	"github.com/tinytelemetry/logsearch/internal/query"
)

const completeStatement = "SELECT SNOWFLAKE.CORTEX.COMPLETE(?, ?) AS RESPONSE"

// Completer calls the Cortex COMPLETE function.
type Completer struct {
	db    Runner
	model string
}

var _ model.Completer = (*Completer)(nil)

// NewCompleter binds the completion model. Empty selects the default model.
func NewCompleter(db Runner, completionModel string) *Completer {
	if completionModel == "" {
		completionModel = model.DefaultCompletionModel
	}
	return &Completer{db: db, model: completionModel}
}

// Complete returns the model's free-text response for prompt.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("empty prompt")
	}
	rows, err := c.db.QueryRows(ctx, completeStatement, c.model, prompt)
	if err != nil {
		return "", fmt.Errorf("cortex complete: %w", err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("cortex complete returned no rows")
	}
	return rows[0].Text("RESPONSE"), nil
}

// StatusReader reads the semantic search service state with SHOW CORTEX SEARCH SERVICES.
type StatusReader struct {
	db       Runner
	database string
	schema   string
	service  string
}

var _ model.ServiceStatusReader = (*StatusReader)(nil)

// NewStatusReader validates the service coordinates.
func NewStatusReader(db Runner, database, schema, service string) (*StatusReader, error) {
	for _, name := range []string{database, schema, service} {
		if !query.ValidIdentifier(name) {
			return nil, fmt.Errorf("invalid identifier %q", name)
		}
	}
	return &StatusReader{db: db, database: database, schema: schema, service: service}, nil
}

// ServiceStatus returns the serving state and indexed row count.
func (s *StatusReader) ServiceStatus(ctx context.Context) (model.ServiceStatus, error) {
	stmt := fmt.Sprintf("SHOW CORTEX SEARCH SERVICES LIKE '%s' IN SCHEMA %s.%s",
		likeLiteral(s.service), s.database, s.schema)
	rows, err := s.db.QueryRows(ctx, stmt)
	if err != nil {
		return model.ServiceStatus{}, err
	}
	if len(rows) == 0 {
		return model.ServiceStatus{}, fmt.Errorf("%s: %w", s.service, model.ErrServiceNotFound)
	}
	state := rows[0].Text("serving_state")
	if state == "" {
		state = "Unknown"
	}
	return model.ServiceStatus{
		ServingState: state,
		IndexedRows:  rows[0].Int64("source_data_num_rows"),
	}, nil
}
