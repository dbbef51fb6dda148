package query

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/tinytelemetry/logsearch/internal/model"
)

// Dialect renders the backend-specific parts of the keyword query.
type Dialect interface {
	Name() string
	// FullTextPredicate returns a WHERE fragment and its bound args for a non-empty search text.
	FullTextPredicate(mode model.SearchMode, text string) (string, []any, error)
}

// Snowflake uses the SEARCH operator across all columns with a fixed analyzer.
type Snowflake struct {
	Analyzer string
}

func (Snowflake) Name() string { return "snowflake" }

func (d Snowflake) FullTextPredicate(mode model.SearchMode, text string) (string, []any, error) {
	if !mode.Valid() {
		return "", nil, fmt.Errorf("invalid search mode %q", mode)
	}
	analyzer := d.Analyzer
	if analyzer == "" {
		analyzer = model.DefaultAnalyzer
	}
	if !identifierPattern.MatchString(analyzer) {
		return "", nil, fmt.Errorf("invalid analyzer %q", analyzer)
	}
	clause := fmt.Sprintf("SEARCH((*), ?, SEARCH_MODE => '%s', ANALYZER => '%s')", mode, analyzer)
	return clause, []any{text}, nil
}

// DuckDB emulates the SEARCH operator for the local backend with word-boundary regular
// expressions over the concatenated row.
type DuckDB struct{}

func (DuckDB) Name() string { return "duckdb" }

const duckdbSearchTarget = "lower(concat_ws(' ', LOG_ID, SEVERITY, SOURCE, HOST, MESSAGE))"

func (DuckDB) FullTextPredicate(mode model.SearchMode, text string) (string, []any, error) {
	if !mode.Valid() {
		return "", nil, fmt.Errorf("invalid search mode %q", mode)
	}
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		// Only separators were typed; nothing can match a token search.
		return "1 = 0", nil, nil
	}

	if mode == model.SearchModePhrase {
		quoted := make([]string, len(tokens))
		for i, tok := range tokens {
			quoted[i] = regexp.QuoteMeta(tok)
		}
		pattern := `(^|[^\pL\pN])` + strings.Join(quoted, `[^\pL\pN]+`) + `($|[^\pL\pN])`
		return "regexp_matches(" + duckdbSearchTarget + ", ?)", []any{pattern}, nil
	}

	joiner := " OR "
	if mode == model.SearchModeAnd {
		joiner = " AND "
	}
	parts := make([]string, len(tokens))
	args := make([]any, len(tokens))
	for i, tok := range tokens {
		parts[i] = "regexp_matches(" + duckdbSearchTarget + ", ?)"
		args[i] = `(^|[^\pL\pN])` + regexp.QuoteMeta(tok) + `($|[^\pL\pN])`
	}
	return "(" + strings.Join(parts, joiner) + ")", args, nil
}

// Tokenize splits text the way a unicode analyzer does: on every rune that is neither a
// letter nor a digit, lower-cased.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}
