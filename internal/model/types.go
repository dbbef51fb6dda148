package model

import (
	"errors"
	"time"
)

var (
	// ErrNotConfigured means the backend has no endpoint for the requested operation.
	ErrNotConfigured = errors.New("not configured")
	// ErrUnsupported means the active backend cannot perform the operation.
	ErrUnsupported = errors.New("not supported by this backend")
	// ErrWarehouseNotFound means SHOW WAREHOUSES returned no row for the configured name.
	ErrWarehouseNotFound = errors.New("warehouse not found")
	// ErrServiceNotFound means SHOW CORTEX SEARCH SERVICES returned no row.
	ErrServiceNotFound = errors.New("search service not found")
)

// LogRecord is one row of the log table. The shape is owned by the warehouse table.
type LogRecord struct {
	LogID     string    `json:"log_id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Source    string    `json:"source"`
	Host      string    `json:"host"`
	Message   string    `json:"message"`
}

// Severity levels in display order.
const (
	SeverityFatal = "FATAL"
	SeverityError = "ERROR"
	SeverityWarn  = "WARN"
	SeverityInfo  = "INFO"
	SeverityDebug = "DEBUG"
)

// Severities returns the full severity universe in display order.
func Severities() []string {
	return []string{SeverityFatal, SeverityError, SeverityWarn, SeverityInfo, SeverityDebug}
}

// SearchMode is the match mode passed to the full-text predicate.
type SearchMode string

const (
	SearchModeOr     SearchMode = "OR"
	SearchModeAnd    SearchMode = "AND"
	SearchModePhrase SearchMode = "PHRASE"
)

// SearchModes lists the accepted modes; OR is the default.
func SearchModes() []SearchMode {
	return []SearchMode{SearchModeOr, SearchModeAnd, SearchModePhrase}
}

// Valid reports whether m is one of the three literal modes.
func (m SearchMode) Valid() bool {
	switch m {
	case SearchModeOr, SearchModeAnd, SearchModePhrase:
		return true
	}
	return false
}

// KeywordQuery carries the keyword page filters.
// A nil Severities or Sources slice means "not supplied" and selects everything.
type KeywordQuery struct {
	Text       string
	Mode       SearchMode
	Start      time.Time
	End        time.Time
	Severities []string
	Sources    []string
	Limit      int
}

// SemanticQuery carries the semantic page request. Empty filter lists mean "all".
type SemanticQuery struct {
	Query      string
	Severities []string
	Sources    []string
	Limit      int
}

// IndexEntry is one row of DESCRIBE SEARCH OPTIMIZATION.
type IndexEntry struct {
	Method string `json:"method"`
	Target string `json:"target"`
	Active bool   `json:"active"`
}

// IndexStatus describes the search optimization configured on the log table.
type IndexStatus struct {
	Entries []IndexEntry `json:"entries"`
}

// Configured reports whether any search optimization exists on the table.
func (s IndexStatus) Configured() bool {
	return len(s.Entries) > 0
}

// Ready reports whether every configured entry finished building.
func (s IndexStatus) Ready() bool {
	if len(s.Entries) == 0 {
		return false
	}
	for _, e := range s.Entries {
		if !e.Active {
			return false
		}
	}
	return true
}

// Has reports whether an entry with the given method targets column.
func (s IndexStatus) Has(method, column string) bool {
	for _, e := range s.Entries {
		if equalFold(e.Method, method) && containsFold(e.Target, column) {
			return true
		}
	}
	return false
}

// ServiceStatus is the semantic search service state.
type ServiceStatus struct {
	ServingState string `json:"serving_state"`
	IndexedRows  int64  `json:"indexed_rows"`
}

// AdminResult reports the outcome of an administrative action.
type AdminResult struct {
	Changed bool   `json:"changed"`
	Message string `json:"message"`
}
