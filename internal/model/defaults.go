package model

import "time"

// Shared defaults used by the server binary, the query builders and the HTTP layer.
const (
	DefaultLogTable          = "LOG_SEARCH_APP.PUBLIC.LOGS"
	DefaultSemanticTable     = "LOG_SEARCH_APP.PUBLIC.LOGS_SMALL"
	DefaultIndexedColumn     = "MESSAGE"
	DefaultAnalyzer          = "UNICODE_ANALYZER"
	DefaultSemanticDatabase  = "LOG_SEARCH_APP"
	DefaultSemanticSchema    = "PUBLIC"
	DefaultSemanticService   = "LOG_SEMANTIC_SEARCH"
	DefaultCompletionModel   = "claude-3-5-sonnet"
	DefaultWarehouseName     = "SEARCH_WH"
	DefaultWarehouseSize     = "X-Small"
	DefaultQueryTimeout      = 60 * time.Second
	DefaultKeywordLimit      = 10000
	MinKeywordLimit          = 1
	MaxKeywordLimit          = 10000000
	DefaultSemanticLimit     = 10
	MinSemanticLimit         = 1
	MaxSemanticLimit         = 1000
	DefaultPreviewLimit      = 100
	MaxPreviewLimit          = 10000
	DefaultEventsPageSize    = 100
	DetailRows               = 30
	TopHostsLimit            = 15
	TopFieldsLimit           = 15
	TopFieldValuesLimit      = 10
	DefaultAnalysisLanguage  = "English"
	DefaultSessionTTL        = 30 * time.Minute
	DefaultSessionCapacity   = 1024
	DisplayTimeLayout        = "2006-01-02 15:04:05"
	SemanticTimestampDisplay = 19
)
