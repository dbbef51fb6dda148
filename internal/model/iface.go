package model

import "context"

// LogSearcher provides the keyword page reads against the log table.
type LogSearcher interface {
	SearchLogs(ctx context.Context, q KeywordQuery, sourceUniverse []string) ([]LogRecord, error)
	DistinctSources(ctx context.Context) ([]string, error)
	TotalLogCount(ctx context.Context) (int64, error)
	PreviewLogs(ctx context.Context, limit int) ([]LogRecord, error)
}

// SourceLister lists the distinct sources of a log table.
type SourceLister interface {
	DistinctSources(ctx context.Context) ([]string, error)
}

// IndexAdmin controls the managed search optimization index.
type IndexAdmin interface {
	IndexStatus(ctx context.Context) (IndexStatus, error)
	EnableIndex(ctx context.Context) error
	DisableIndex(ctx context.Context) error
}

// ComputeAdmin controls the size of the compute warehouse.
type ComputeAdmin interface {
	WarehouseName() string
	CurrentSize(ctx context.Context) (string, error)
	SetSize(ctx context.Context, code string) error
}

// SemanticSearcher runs a natural-language query against the managed semantic service.
type SemanticSearcher interface {
	Search(ctx context.Context, q SemanticQuery) ([]LogRecord, error)
}

// ServiceStatusReader reports the semantic service state.
type ServiceStatusReader interface {
	ServiceStatus(ctx context.Context) (ServiceStatus, error)
}

// Completer produces free text from a prompt through the managed completion endpoint.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
