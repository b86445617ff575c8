// shopmcp-mcp-core serves the storefront catalog and basket MCP tools
// over HTTP: the streamable and legacy SSE transports for MCP clients,
// plus a plain-JSON tool-invocation surface for direct callers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/potatoman03/shopmcp/internal/basket"
	"github.com/potatoman03/shopmcp/internal/cache"
	"github.com/potatoman03/shopmcp/internal/catalog"
	"github.com/potatoman03/shopmcp/internal/config"
	"github.com/potatoman03/shopmcp/internal/embedding"
	"github.com/potatoman03/shopmcp/internal/mcpserver"
	"github.com/potatoman03/shopmcp/internal/middleware"
	"github.com/potatoman03/shopmcp/internal/retrieval"
	"github.com/potatoman03/shopmcp/internal/tenant"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Bool("v2_enabled", cfg.V2Enabled),
		slog.Bool("embedder_enabled", cfg.OpenAIAPIKey != ""),
	)

	ctx := context.Background()
	pool, dbReady, dbErr := connectPool(ctx, cfg, logger)

	repo := catalog.NewRepository(pool)
	resolver := tenant.NewResolver(repo)

	embedQueryCache := cache.New[string, []float32](cfg.EmbedQueryCacheSize, cfg.EmbedQueryCacheTTL)
	embedder := embedding.New(cfg.OpenAIAPIKey, embedQueryCache)

	search := &retrieval.Service{
		Repo:       repo,
		Resolver:   resolver,
		Embedder:   embedder,
		V2Cache:    cache.New[string, map[string]any](cfg.SearchCacheSize, cfg.SearchCacheTTL),
		V2Enabled:  cfg.V2Enabled,
		ShadowRate: cfg.V2ShadowSampleRate,
		Logger:     logger,
	}

	basketMgr := basket.NewManager(pool, repo)

	srv := mcpserver.NewServer(repo, basketMgr, search, resolver, embedder, cfg.V2Enabled, logger)
	srv.SetHealth(dbReady, dbErr)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.Logging(logger),
	)(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting", slog.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	pool.Close()
	logger.Info("server stopped")
	return nil
}

// connectPool dials the catalog/basket pool but never fails startup on
// a dead database: /health reports the failure so an orchestrator can
// decide whether to route traffic instead of crash-looping on startup.
func connectPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, bool, string) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database pool creation failed", slog.String("error", err.Error()))
		return nil, false, err.Error()
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("database ping failed", slog.String("error", err.Error()))
		return pool, false, err.Error()
	}

	logger.Info("database connection established")
	return pool, true, ""
}

func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
