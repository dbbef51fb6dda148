package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tinytelemetry/logsearch/internal/model"
)

// identifierPattern accepts plain and dotted (db.schema.table) unquoted identifiers.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*){0,2}$`)

// LogColumns is the projected column list for every log read.
const LogColumns = "LOG_ID, TIMESTAMP, SEVERITY, SOURCE, HOST, MESSAGE"

// ValidIdentifier reports whether name is safe to splice into SQL as an object name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// ClampLimit bounds n to [lo, hi], substituting def when n is not positive.
func ClampLimit(n, def, lo, hi int) int {
	if n <= 0 {
		n = def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// BuildKeywordQuery assembles the keyword search statement and its bound args.
// Severity and source clauses are omitted when the selection is nil or covers the whole
// universe; an empty non-nil selection matches nothing.
func BuildKeywordQuery(d Dialect, table string, q model.KeywordQuery, sourceUniverse []string) (string, []any, error) {
	if !ValidIdentifier(table) {
		return "", nil, fmt.Errorf("invalid table name %q", table)
	}
	if q.End.Before(q.Start) {
		return "", nil, fmt.Errorf("time range end %s is before start %s", q.End, q.Start)
	}

	var conditions []string
	var args []any

	conditions = append(conditions, "TIMESTAMP BETWEEN ? AND ?")
	args = append(args, q.Start, q.End)

	if clause, cArgs, ok := inClause("SEVERITY", upperAll(q.Severities), model.Severities()); ok {
		conditions = append(conditions, clause)
		args = append(args, cArgs...)
	}

	if clause, cArgs, ok := inClause("SOURCE", q.Sources, sourceUniverse); ok {
		conditions = append(conditions, clause)
		args = append(args, cArgs...)
	}

	if text := strings.TrimSpace(q.Text); text != "" {
		mode := q.Mode
		if mode == "" {
			mode = model.SearchModeOr
		}
		clause, ftArgs, err := d.FullTextPredicate(mode, text)
		if err != nil {
			return "", nil, err
		}
		conditions = append(conditions, clause)
		args = append(args, ftArgs...)
	}

	limit := ClampLimit(q.Limit, model.DefaultKeywordLimit, model.MinKeywordLimit, model.MaxKeywordLimit)
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY TIMESTAMP DESC LIMIT %d",
		LogColumns, table, strings.Join(conditions, " AND "), limit,
	)
	return query, args, nil
}

// inClause renders "column IN (?, ...)" unless the selection means "everything".
func inClause(column string, selected, universe []string) (string, []any, bool) {
	if selected == nil {
		return "", nil, false
	}
	values := dedupe(selected)
	if len(values) == 0 {
		return "1 = 0", nil, true
	}
	if universe != nil && sameSet(values, universe) {
		return "", nil, false
	}
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return column + " IN (" + strings.Join(placeholders, ", ") + ")", args, true
}

// dedupe keeps first occurrences and drops blank entries. The result is non-nil.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sameSet(a, b []string) bool {
	x := dedupe(a)
	y := dedupe(b)
	if len(x) != len(y) {
		return false
	}
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func upperAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(strings.TrimSpace(v))
	}
	return out
}

// DistinctSourcesQuery lists the source universe for the filter widgets.
func DistinctSourcesQuery(table string) (string, error) {
	if !ValidIdentifier(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return fmt.Sprintf("SELECT DISTINCT SOURCE FROM %s ORDER BY SOURCE", table), nil
}

// TotalCountQuery counts every row of table.
func TotalCountQuery(table string) (string, error) {
	if !ValidIdentifier(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return fmt.Sprintf("SELECT COUNT(*) AS CNT FROM %s", table), nil
}

// PreviewQuery returns the latest limit rows, limit clamped to [1, 10000].
func PreviewQuery(table string, limit int) (string, error) {
	if !ValidIdentifier(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	limit = ClampLimit(limit, model.DefaultPreviewLimit, 1, model.MaxPreviewLimit)
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY TIMESTAMP DESC LIMIT %d", LogColumns, table, limit), nil
}
