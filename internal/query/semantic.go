package query

import (
	"strings"

	"github.com/tinytelemetry/logsearch/internal/model"
)

// SemanticColumns is the explicit column list requested from the semantic service.
var SemanticColumns = []string{"LOG_ID", "TIMESTAMP", "SEVERITY", "SOURCE", "HOST", "MESSAGE"}

// SemanticRequest is the body of a semantic service query.
type SemanticRequest struct {
	Query   string         `json:"query"`
	Columns []string       `json:"columns"`
	Limit   int            `json:"limit"`
	Filter  map[string]any `json:"filter,omitempty"`
}

// BuildSemanticFilter renders the structured filter for the semantic service.
// Each non-empty list becomes an @or of @eq clauses; two lists are joined with @and.
// It returns nil when neither list has values.
func BuildSemanticFilter(severities, sources []string) map[string]any {
	var clauses []map[string]any
	if c := orEquals("SEVERITY", upperAll(dedupe(severities))); c != nil {
		clauses = append(clauses, c)
	}
	if c := orEquals("SOURCE", dedupe(sources)); c != nil {
		clauses = append(clauses, c)
	}

	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		and := make([]any, len(clauses))
		for i, c := range clauses {
			and[i] = c
		}
		return map[string]any{"@and": and}
	}
}

func orEquals(column string, values []string) map[string]any {
	if len(values) == 0 {
		return nil
	}
	or := make([]any, len(values))
	for i, v := range values {
		or[i] = map[string]any{"@eq": map[string]any{column: v}}
	}
	return map[string]any{"@or": or}
}

// BuildSemanticRequest trims the query and clamps the limit. ok is false for an empty
// query, in which case no search should run.
func BuildSemanticRequest(q model.SemanticQuery) (SemanticRequest, bool) {
	text := strings.TrimSpace(q.Query)
	if text == "" {
		return SemanticRequest{}, false
	}
	return SemanticRequest{
		Query:   text,
		Columns: append([]string(nil), SemanticColumns...),
		Limit:   ClampLimit(q.Limit, model.DefaultSemanticLimit, model.MinSemanticLimit, model.MaxSemanticLimit),
		Filter:  BuildSemanticFilter(q.Severities, q.Sources),
	}, true
}
