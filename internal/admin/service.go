// Package admin wraps index and warehouse administration so that every action first reads
// the current state and skips the statement when nothing would change.
package admin

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tinytelemetry/logsearch/internal/model"
)

// FullTextMethod is the search optimization method the keyword page relies on.
const FullTextMethod = "FULL_TEXT"

// Service performs idempotent admin actions. Either backend may be nil, in which case
// its actions return model.ErrNotConfigured.
type Service struct {
	index   model.IndexAdmin
	compute model.ComputeAdmin
	column  string
	logger  *zap.Logger
}

// NewService creates an admin service for the indexed column.
func NewService(index model.IndexAdmin, compute model.ComputeAdmin, column string, logger *zap.Logger) *Service {
	if column == "" {
		column = model.DefaultIndexedColumn
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, compute: compute, column: column, logger: logger}
}

// Column returns the column the full-text index covers.
func (s *Service) Column() string {
	return s.column
}

// IndexStatus reads the current search optimization entries.
func (s *Service) IndexStatus(ctx context.Context) (model.IndexStatus, error) {
	if s.index == nil {
		return model.IndexStatus{}, model.ErrNotConfigured
	}
	st, err := s.index.IndexStatus(ctx)
	if err != nil {
		return model.IndexStatus{}, fmt.Errorf("read search optimization: %w", err)
	}
	return st, nil
}

// EnableSearchOptimization adds the full-text index unless it already covers the column.
func (s *Service) EnableSearchOptimization(ctx context.Context) (model.AdminResult, error) {
	st, err := s.IndexStatus(ctx)
	if err != nil {
		return model.AdminResult{}, err
	}
	if st.Has(FullTextMethod, s.column) {
		return model.AdminResult{Message: "Search optimization is already enabled."}, nil
	}
	if err := s.index.EnableIndex(ctx); err != nil {
		return model.AdminResult{}, fmt.Errorf("enable search optimization: %w", err)
	}
	s.logger.Info("search optimization enabled", zap.String("column", s.column))
	return model.AdminResult{Changed: true, Message: "Search optimization enabled. The index builds in the background."}, nil
}

// DisableSearchOptimization drops the index unless none is configured.
func (s *Service) DisableSearchOptimization(ctx context.Context) (model.AdminResult, error) {
	st, err := s.IndexStatus(ctx)
	if err != nil {
		return model.AdminResult{}, err
	}
	if !st.Configured() {
		return model.AdminResult{Message: "Search optimization is already disabled."}, nil
	}
	if err := s.index.DisableIndex(ctx); err != nil {
		return model.AdminResult{}, fmt.Errorf("disable search optimization: %w", err)
	}
	s.logger.Info("search optimization disabled")
	return model.AdminResult{Changed: true, Message: "Search optimization disabled."}, nil
}

// WarehouseName returns the administered warehouse, empty when none is configured.
func (s *Service) WarehouseName() string {
	if s.compute == nil {
		return ""
	}
	return s.compute.WarehouseName()
}

// CurrentSize returns the display label of the warehouse size.
func (s *Service) CurrentSize(ctx context.Context) (string, error) {
	if s.compute == nil {
		return "", model.ErrNotConfigured
	}
	size, err := s.compute.CurrentSize(ctx)
	if err != nil {
		return "", fmt.Errorf("read warehouse size: %w", err)
	}
	if label, err := SizeLabel(size); err == nil {
		return label, nil
	}
	return size, nil
}

// Resize sets the warehouse size unless it already matches.
func (s *Service) Resize(ctx context.Context, size string) (model.AdminResult, error) {
	if s.compute == nil {
		return model.AdminResult{}, model.ErrNotConfigured
	}
	code, err := NormalizeSizeCode(size)
	if err != nil {
		return model.AdminResult{}, &ValidationError{Err: err}
	}

	current, err := s.compute.CurrentSize(ctx)
	if err != nil {
		return model.AdminResult{}, fmt.Errorf("read warehouse size: %w", err)
	}
	label, _ := SizeLabel(code)
	if currentCode, err := NormalizeSizeCode(current); err == nil && currentCode == code {
		return model.AdminResult{Message: fmt.Sprintf("Warehouse %s is already %s.", s.compute.WarehouseName(), label)}, nil
	}

	if err := s.compute.SetSize(ctx, code); err != nil {
		return model.AdminResult{}, fmt.Errorf("resize warehouse: %w", err)
	}
	s.logger.Info("warehouse resized",
		zap.String("warehouse", s.compute.WarehouseName()),
		zap.String("from", current),
		zap.String("to", code))
	return model.AdminResult{Changed: true, Message: fmt.Sprintf("Warehouse %s resized to %s.", s.compute.WarehouseName(), label)}, nil
}

// ValidationError marks a request the caller can fix.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
