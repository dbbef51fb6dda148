package httpserver

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/tinytelemetry/logsearch/internal/admin"
	"github.com/tinytelemetry/logsearch/internal/model"
	"github.com/tinytelemetry/logsearch/internal/session"
)

// Deps are the backends behind the pages and API. Semantic, Status, and Completer may be
// nil; the matching features then report that they are not configured.
type Deps struct {
	Backend   string
	Logs      model.LogSearcher
	Admin     *admin.Service
	Semantic  model.SemanticSearcher
	Status    model.ServiceStatusReader
	Completer model.Completer
	Sessions  *session.Store
	Logger    *zap.Logger

	// SemanticSources lists the source filter options on the semantic page; nil uses Logs.
	SemanticSources model.SourceLister

	// AdminUser and AdminPasswordHash gate the admin routes with basic auth when the hash is set.
	AdminUser         string
	AdminPasswordHash string
	AnalysisLanguage  string
	Gzip              bool
	SecureCookies     bool
}

// Server serves the keyword and semantic pages and the JSON API.
type Server struct {
	addr      string
	deps      Deps
	logger    *zap.Logger
	templates *template.Template
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
	now       func() time.Time
}

// NewServer creates a server. Templates are parsed eagerly so a broken page fails startup.
func NewServer(addr string, deps Deps) (*Server, error) {
	if addr == "" {
		addr = "0.0.0.0:8080"
	}
	if deps.Logs == nil {
		return nil, errors.New("httpserver: log searcher is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.SemanticSources == nil {
		deps.SemanticSources = deps.Logs
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore(0, 0)
	}
	if deps.Admin == nil {
		deps.Admin = admin.NewService(nil, nil, "", deps.Logger)
	}
	if deps.AdminUser == "" {
		deps.AdminUser = "admin"
	}
	if deps.AnalysisLanguage == "" {
		deps.AnalysisLanguage = model.DefaultAnalysisLanguage
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		deps:      deps,
		logger:    deps.Logger,
		templates: tmpl,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
		now:       time.Now,
	}, nil
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.sessionCookie())
	r.SetHTMLTemplate(s.templates)

	r.GET("/", s.handleKeywordPage)
	r.GET("/semantic", s.handleSemanticPage)
	r.POST("/semantic/search", s.handleSemanticSearchForm)
	r.POST("/semantic/analyze", s.handleSemanticAnalyzeForm)

	adminForms := r.Group("/admin", s.adminAuth())
	adminForms.POST("/search-optimization/enable", s.handleEnableForm)
	adminForms.POST("/search-optimization/disable", s.handleDisableForm)
	adminForms.POST("/warehouse/size", s.handleResizeForm)

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/sources", s.handleSources)
	api.GET("/logs/count", s.handleLogCount)
	api.GET("/logs/preview", s.handlePreview)
	api.POST("/keyword/search", s.handleKeywordSearch)
	api.POST("/semantic/search", s.handleSemanticSearch)
	api.POST("/semantic/analyze", s.handleSemanticAnalyze)
	api.GET("/semantic/status", s.handleServiceStatus)

	adminAPI := api.Group("/admin")
	adminAPI.GET("/search-optimization", s.handleIndexStatus)
	adminAPI.GET("/warehouse", s.handleWarehouse)
	adminAPI.POST("/search-optimization", s.adminAuth(), s.handleEnableIndex)
	adminAPI.DELETE("/search-optimization", s.adminAuth(), s.handleDisableIndex)
	adminAPI.PUT("/warehouse", s.adminAuth(), s.handleResize)

	return r
}

// Handler is the router, gzip-wrapped when compression is enabled.
func (s *Server) Handler() http.Handler {
	r := s.Router()
	if s.deps.Gzip {
		return gzhttp.GzipHandler(r)
	}
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Keyword searches and completions can run for the full query timeout.
		WriteTimeout: 3 * time.Minute,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()
	s.logger.Info("http server listening", zap.String("addr", listener.Addr().String()))

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
