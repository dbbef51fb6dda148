package httpserver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/logsearch/internal/admin"
	"github.com/tinytelemetry/logsearch/internal/model"
)

// indexPanel is the search optimization panel.
type indexPanel struct {
	Status  model.IndexStatus `json:"status"`
	Enabled bool              `json:"enabled"`
	Ready   bool              `json:"ready"`
	Column  string            `json:"column"`
	Err     string            `json:"error,omitempty"`
}

// warehousePanel is the compute size panel.
type warehousePanel struct {
	Name  string                `json:"name"`
	Size  string                `json:"size"`
	Sizes []admin.WarehouseSize `json:"sizes"`
	Err   string                `json:"error,omitempty"`
}

// sidePanels holds the keyword page reads that do not depend on each other.
type sidePanels struct {
	Sources    []string
	SourcesErr string
	Count      int64
	CountErr   string
	Preview    []model.LogRecord
	PreviewErr string
	Index      indexPanel
	Warehouse  warehousePanel
}

func newIndexPanel(column string, st model.IndexStatus) indexPanel {
	return indexPanel{
		Status:  st,
		Enabled: st.Has(admin.FullTextMethod, column),
		Ready:   st.Ready(),
		Column:  column,
	}
}

func (s *Server) loadIndexPanel(ctx context.Context) indexPanel {
	st, err := s.deps.Admin.IndexStatus(ctx)
	if err != nil {
		return indexPanel{Column: s.deps.Admin.Column(), Err: describeError(err)}
	}
	return newIndexPanel(s.deps.Admin.Column(), st)
}

func (s *Server) loadWarehousePanel(ctx context.Context) warehousePanel {
	p := warehousePanel{Name: s.deps.Admin.WarehouseName(), Sizes: admin.WarehouseSizes()}
	size, err := s.deps.Admin.CurrentSize(ctx)
	if err != nil {
		p.Err = describeError(err)
		return p
	}
	p.Size = size
	return p
}

// loadSidePanels runs the independent reads concurrently. A failing read only marks its
// own panel, so the group never returns an error.
func (s *Server) loadSidePanels(ctx context.Context, withPreview bool) sidePanels {
	var p sidePanels
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sources, err := s.deps.Logs.DistinctSources(gctx)
		if err != nil {
			p.SourcesErr = describeError(err)
			return nil
		}
		p.Sources = sources
		return nil
	})
	g.Go(func() error {
		count, err := s.deps.Logs.TotalLogCount(gctx)
		if err != nil {
			p.CountErr = describeError(err)
			return nil
		}
		p.Count = count
		return nil
	})
	if withPreview {
		g.Go(func() error {
			preview, err := s.deps.Logs.PreviewLogs(gctx, model.DefaultPreviewLimit)
			if err != nil {
				p.PreviewErr = describeError(err)
				return nil
			}
			p.Preview = preview
			return nil
		})
	}
	g.Go(func() error {
		p.Index = s.loadIndexPanel(gctx)
		return nil
	})
	g.Go(func() error {
		p.Warehouse = s.loadWarehousePanel(gctx)
		return nil
	})

	_ = g.Wait()
	return p
}

// semanticPanels holds the semantic page side reads.
type semanticPanels struct {
	Status    model.ServiceStatus
	StatusErr string
	Sources   []string
	Index     indexPanel
	Warehouse warehousePanel
}

func (s *Server) loadSemanticPanels(ctx context.Context) semanticPanels {
	var p semanticPanels
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st, err := s.serviceStatus(gctx)
		if err != nil {
			p.StatusErr = describeError(err)
			return nil
		}
		p.Status = st
		return nil
	})
	g.Go(func() error {
		// A failure leaves the source filter empty.
		sources, err := s.deps.SemanticSources.DistinctSources(gctx)
		if err == nil {
			p.Sources = sources
		}
		return nil
	})
	g.Go(func() error {
		p.Index = s.loadIndexPanel(gctx)
		return nil
	})
	g.Go(func() error {
		p.Warehouse = s.loadWarehousePanel(gctx)
		return nil
	})

	_ = g.Wait()
	return p
}

func (s *Server) serviceStatus(ctx context.Context) (model.ServiceStatus, error) {
	if s.deps.Status == nil {
		return model.ServiceStatus{}, model.ErrNotConfigured
	}
	return s.deps.Status.ServiceStatus(ctx)
}
