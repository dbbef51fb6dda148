package main

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/logsearch/internal/admin"
	"github.com/tinytelemetry/logsearch/internal/cortex"
	"github.com/tinytelemetry/logsearch/internal/duckdb"
	"github.com/tinytelemetry/logsearch/internal/httpserver"
	"github.com/tinytelemetry/logsearch/internal/logging"
	"github.com/tinytelemetry/logsearch/internal/model"
	"github.com/tinytelemetry/logsearch/internal/query"
	"github.com/tinytelemetry/logsearch/internal/session"
	"github.com/tinytelemetry/logsearch/internal/snowflake"
	"github.com/tinytelemetry/logsearch/internal/warehouse"
)

// backend is the set of warehouse-facing dependencies plus their cleanup.
type backend struct {
	deps    httpserver.Deps
	storage string
	// background jobs run for the life of the server.
	jobs  []func(context.Context) error
	close func() error
}

// runServer connects the configured backend and serves the pages until a signal arrives.
func runServer(cfg appConfig) error {
	logger, syncLogger, err := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = syncLogger() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	var b *backend
	switch cfg.Backend {
	case backendDuckDB:
		b, err = openLocalBackend(ctx, cfg, logger)
	default:
		b, err = openSnowflakeBackend(ctx, cfg, logger)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			logger.Warn("closing backend", zap.Error(err))
		}
	}()

	deps := b.deps
	deps.Backend = cfg.Backend
	deps.Logger = logger
	deps.Sessions = session.NewStore(cfg.SessionCapacity, cfg.SessionTTL)
	deps.AdminUser = cfg.AdminUser
	deps.AdminPasswordHash = cfg.AdminPasswordHash
	deps.AnalysisLanguage = cfg.AnalysisLanguage
	deps.Gzip = cfg.Gzip
	deps.SecureCookies = cfg.SecureCookies

	srv, err := httpserver.NewServer(cfg.Addr, deps)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	printStartupBanner(cfg, b)

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range b.jobs {
		g.Go(func() error { return job(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Warn("server stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

func openLocalBackend(ctx context.Context, cfg appConfig, logger *zap.Logger) (*backend, error) {
	store, err := duckdb.NewStore(ctx, cfg.DBPath, logger, cfg.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	if cfg.SeedFile != "" {
		if _, err := store.LoadSeedFile(ctx, cfg.SeedFile); err != nil {
			store.Close()
			return nil, err
		}
	}

	local := duckdb.NewLocalAdmin(store, cfg.IndexedColumn, cfg.WarehouseName)
	b := &backend{
		deps: httpserver.Deps{
			Logs:  store,
			Admin: admin.NewService(local, local, cfg.IndexedColumn, logger),
		},
		storage: shortenPath(cfg.DBPath),
		close:   store.Close,
	}
	if r := duckdb.NewRetention(store, cfg.RetentionDays, 0); r != nil {
		b.jobs = append(b.jobs, r.Run)
	}
	return b, nil
}

func openSnowflakeBackend(ctx context.Context, cfg appConfig, logger *zap.Logger) (*backend, error) {
	db, err := snowflake.Open(ctx, snowflake.Config{
		Account:        cfg.SnowflakeAccount,
		User:           cfg.SnowflakeUser,
		Password:       cfg.SnowflakePassword,
		Token:          cfg.SnowflakeToken,
		PrivateKeyPath: cfg.SnowflakePrivateKey,
		Role:           cfg.SnowflakeRole,
		Warehouse:      cfg.WarehouseName,
		Database:       cfg.SnowflakeDatabase,
		Schema:         cfg.SnowflakeSchema,
		LoginTimeout:   cfg.QueryTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	store, err := warehouse.NewStore(db, query.Snowflake{Analyzer: cfg.Analyzer}, cfg.LogTable, logger, cfg.QueryTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}
	sfAdmin, err := snowflake.NewAdmin(store, cfg.LogTable, cfg.IndexedColumn, cfg.Analyzer, cfg.WarehouseName)
	if err != nil {
		db.Close()
		return nil, err
	}
	indexed, err := warehouse.NewStore(db, query.Snowflake{Analyzer: cfg.Analyzer}, cfg.CortexSourceTable, logger, cfg.QueryTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}
	status, err := snowflake.NewStatusReader(store, cfg.CortexDatabase, cfg.CortexSchema, cfg.CortexService)
	if err != nil {
		db.Close()
		return nil, err
	}

	var search model.SemanticSearcher
	if cfg.semanticSearchEnabled() {
		client, err := newCortexClient(cfg, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure semantic search: %w", err)
		}
		search = client
	} else {
		logger.Warn("semantic search disabled: set snowflake-token or snowflake-private-key to use Cortex Search")
	}

	return &backend{
		deps: httpserver.Deps{
			Logs:      store,
			Admin:     admin.NewService(sfAdmin, sfAdmin, cfg.IndexedColumn, logger),
			Semantic:  search,
			Status:    status,
			Completer: snowflake.NewCompleter(store, cfg.CompletionModel),

			SemanticSources: indexed,
		},
		storage: cfg.SnowflakeAccount + " / " + cfg.LogTable,
		close:   db.Close,
	}, nil
}

func newCortexClient(cfg appConfig, logger *zap.Logger) (*cortex.Client, error) {
	var key *rsa.PrivateKey
	if cfg.SnowflakePrivateKey != "" {
		var err error
		if key, err = snowflake.LoadPrivateKey(cfg.SnowflakePrivateKey); err != nil {
			return nil, err
		}
	}
	return cortex.NewClient(cortex.Config{
		BaseURL:    cfg.CortexURL,
		Account:    cfg.SnowflakeAccount,
		User:       cfg.SnowflakeUser,
		Token:      cfg.SnowflakeToken,
		PrivateKey: key,
		Database:   cfg.CortexDatabase,
		Schema:     cfg.CortexSchema,
		Service:    cfg.CortexService,
		Timeout:    cfg.QueryTimeout,
	}, logger)
}

func printStartupBanner(cfg appConfig, b *backend) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")
	enabled := func(label string, on bool, value string) string {
		if on {
			return fmt.Sprintf("    %s  %-14s %s", check, label, cyan.Render(value))
		}
		return fmt.Sprintf("    %s  %-14s %s", dot, label, dim.Render("not configured"))
	}

	logo := cyan.Bold(true).Render(`
    ╦  ╔═╗╔═╗╔═╗╔═╗╔═╗╦═╗╔═╗╦ ╦
    ║  ║ ║║ ╦╚═╗║╣ ╠═╣╠╦╝║  ╠═╣
    ╩═╝╚═╝╚═╝╚═╝╚═╝╩ ╩╩╚═╚═╝╩ ╩`)

	separator := dim.Render("    ─────────────────────────────────")

	lines := []string{
		"",
		logo,
		"    " + dim.Render("v"+version),
		"",
		separator,
		"",
		bold.Render("    Console"),
		"",
		fmt.Sprintf("    %s  %-14s %s", check, "HTTP", cyan.Render("http://"+cfg.Addr)),
		enabled("Admin auth", cfg.AdminPasswordHash != "", cfg.AdminUser),
		"",
		bold.Render("    Warehouse"),
		"",
		fmt.Sprintf("    %s  %-14s %s", check, "Backend", cyan.Render(cfg.Backend)),
		fmt.Sprintf("    %s  %-14s %s", check, "Storage", dim.Render(b.storage)),
		enabled("Semantic", b.deps.Semantic != nil, cfg.CortexService),
		enabled("Completion", b.deps.Completer != nil, cfg.CompletionModel),
		"",
		bold.Render("    Config"),
		"",
	}
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  %-14s %s", check, "Config File", dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  %-14s %s", dot, "Config File", dim.Render("default (no file)")))
	}
	lines = append(lines,
		"",
		separator,
		"",
		"    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"),
		"",
	)

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
