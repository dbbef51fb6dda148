package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tinytelemetry/logsearch/internal/admin"
	"github.com/tinytelemetry/logsearch/internal/analysis"
	"github.com/tinytelemetry/logsearch/internal/duckdb/migrate"
	"github.com/tinytelemetry/logsearch/internal/model"
	"github.com/tinytelemetry/logsearch/internal/query"
)

// handleHealth returns server status.
// schemaReporter is implemented by backends that manage their own schema.
type schemaReporter interface {
	SchemaState(ctx context.Context) (migrate.State, error)
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":   "ok",
		"backend":  s.deps.Backend,
		"uptime":   time.Since(s.startTime).Truncate(time.Second).String(),
		"sessions": s.deps.Sessions.Len(),
	}
	if sr, ok := s.deps.Logs.(schemaReporter); ok {
		st, err := sr.SchemaState(c.Request.Context())
		if err != nil {
			loggerFrom(c).Warn("schema state unavailable", zap.Error(err))
			body["status"] = "degraded"
		} else {
			body["schema"] = st
		}
	}
	c.JSON(http.StatusOK, body)
}

// handleSources returns the distinct sources of the log table.
func (s *Server) handleSources(c *gin.Context) {
	sources, err := s.deps.Logs.DistinctSources(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if sources == nil {
		sources = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

// handleLogCount returns the total row count of the log table.
func (s *Server) handleLogCount(c *gin.Context) {
	count, err := s.deps.Logs.TotalLogCount(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// handlePreview returns the first rows of the log table.
func (s *Server) handlePreview(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(c, badRequest("limit must be an integer"))
			return
		}
		limit = n
	}
	limit = query.ClampLimit(limit, model.DefaultPreviewLimit, 1, model.MaxPreviewLimit)

	records, err := s.deps.Logs.PreviewLogs(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": nonNil(records), "limit": limit})
}

// handleKeywordSearch runs a keyword search and returns the rows with their aggregates.
func (s *Server) handleKeywordSearch(c *gin.Context) {
	var req keywordSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest(err.Error()))
		return
	}
	q, err := req.toQuery(s.now())
	if err != nil {
		s.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	var universe []string
	if q.Sources != nil {
		if universe, err = s.deps.Logs.DistinctSources(ctx); err != nil {
			s.respondError(c, err)
			return
		}
	}

	records, err := s.deps.Logs.SearchLogs(ctx, q, universe)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.loggerFrom(c).Info("keyword search",
		zap.String("mode", string(q.Mode)),
		zap.Int("results", len(records)))

	c.JSON(http.StatusOK, gin.H{
		"start":   q.Start,
		"end":     q.End,
		"records": nonNil(records),
		"summary": summarize(records),
	})
}

// handleSemanticSearch runs a semantic search.
func (s *Server) handleSemanticSearch(c *gin.Context) {
	var form semanticForm
	if err := c.ShouldBindJSON(&form); err != nil {
		s.respondError(c, badRequest(err.Error()))
		return
	}
	q, err := form.toQuery()
	if err != nil {
		s.respondError(c, err)
		return
	}
	records, err := s.semanticSearch(c, q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records":    nonNil(records),
		"severities": analysis.CountSeverities(records),
	})
}

// analyzeRequest is the body of POST /api/semantic/analyze.
type analyzeRequest struct {
	semanticForm
	Language string `json:"language"`
}

// handleSemanticAnalyze runs a semantic search and asks the completion endpoint to
// analyze the results.
func (s *Server) handleSemanticAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest(err.Error()))
		return
	}
	q, err := req.toQuery()
	if err != nil {
		s.respondError(c, err)
		return
	}
	if s.deps.Completer == nil {
		s.respondError(c, model.ErrNotConfigured)
		return
	}
	records, err := s.semanticSearch(c, q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	text, err := s.analyze(c, q.Query, records, req.Language)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": nonNil(records), "analysis": text})
}

// handleServiceStatus reports the semantic service state.
func (s *Server) handleServiceStatus(c *gin.Context) {
	st, err := s.serviceStatus(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// handleIndexStatus reports the search optimization entries.
func (s *Server) handleIndexStatus(c *gin.Context) {
	st, err := s.deps.Admin.IndexStatus(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newIndexPanel(s.deps.Admin.Column(), st))
}

func (s *Server) handleEnableIndex(c *gin.Context) {
	res, err := s.deps.Admin.EnableSearchOptimization(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDisableIndex(c *gin.Context) {
	res, err := s.deps.Admin.DisableSearchOptimization(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleWarehouse reports the warehouse name, size and the selectable sizes.
func (s *Server) handleWarehouse(c *gin.Context) {
	size, err := s.deps.Admin.CurrentSize(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehousePanel{
		Name:  s.deps.Admin.WarehouseName(),
		Size:  size,
		Sizes: admin.WarehouseSizes(),
	})
}

func (s *Server) handleResize(c *gin.Context) {
	var form adminSizeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		s.respondError(c, badRequest(err.Error()))
		return
	}
	res, err := s.deps.Admin.Resize(c.Request.Context(), form.Size)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) semanticSearch(c *gin.Context, q model.SemanticQuery) ([]model.LogRecord, error) {
	if s.deps.Semantic == nil {
		return nil, model.ErrNotConfigured
	}
	records, err := s.deps.Semantic.Search(c.Request.Context(), q)
	if err != nil {
		return nil, err
	}
	s.loggerFrom(c).Info("semantic search",
		zap.Int("limit", q.Limit),
		zap.Int("results", len(records)))
	return records, nil
}

func (s *Server) analyze(c *gin.Context, queryText string, records []model.LogRecord, language string) (string, error) {
	if s.deps.Completer == nil {
		return "", model.ErrNotConfigured
	}
	if language == "" {
		language = s.deps.AnalysisLanguage
	}
	prompt := analysis.BuildAnalysisPrompt(queryText, records, language)
	text, err := s.deps.Completer.Complete(c.Request.Context(), prompt)
	if err != nil {
		return "", err
	}
	s.loggerFrom(c).Info("analysis completed",
		zap.Int("records", len(records)),
		zap.Int("prompt_bytes", len(prompt)))
	return text, nil
}

func nonNil(records []model.LogRecord) []model.LogRecord {
	if records == nil {
		return []model.LogRecord{}
	}
	return records
}
